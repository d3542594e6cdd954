package domain

import "time"

// IssueStatus represents the lifecycle state of an issue.
// OPEN -> IN_PROGRESS -> DONE is the usual order, but any value may follow any other.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusDone       IssueStatus = "DONE"
)

// IssuePriority represents how urgent an issue is.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "LOW"
	IssuePriorityMedium IssuePriority = "MEDIUM"
	IssuePriorityHigh   IssuePriority = "HIGH"
)

// Issue represents a unit of work owned by a single organization.
type Issue struct {
	ID             int64         `json:"id" db:"id"`
	Title          string        `json:"title" db:"title"`
	Description    string        `json:"description" db:"description"`
	Status         IssueStatus   `json:"status" db:"status"`
	Priority       IssuePriority `json:"priority" db:"priority"`
	AssigneeID     *string       `json:"assigneeId" db:"assignee_id"`
	OrganizationID string        `json:"organizationId" db:"organization_id"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// NewIssue is the data needed to insert an issue row.
type NewIssue struct {
	Title          string
	Description    string
	Status         IssueStatus
	Priority       IssuePriority
	AssigneeID     *string
	OrganizationID string
	CreatedAt      time.Time
}

// IssueChanges holds the columns an update overwrites. Nil fields are left unchanged.
type IssueChanges struct {
	Title       *string
	Description *string
	Status      *IssueStatus
	Priority    *IssuePriority
	AssigneeID  *string
}

// Assignee returns the assignee id, or "" when the issue is unassigned.
func (i Issue) Assignee() string {
	if i.AssigneeID == nil {
		return ""
	}
	return *i.AssigneeID
}
