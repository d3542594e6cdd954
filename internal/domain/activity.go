package domain

import "time"

// ActivityAction names the transition recorded by an activity log row.
type ActivityAction string

const (
	ActivityCreate         ActivityAction = "CREATE"
	ActivityUpdateStatus   ActivityAction = "UPDATE_STATUS"
	ActivityUpdateAssignee ActivityAction = "UPDATE_ASSIGNEE"
	ActivityDelete         ActivityAction = "DELETE"
)

const (
	// CreatedMarker is the new value recorded for CREATE entries.
	CreatedMarker = "CREATED"
	// UnassignedMarker is the old value recorded when an issue gets its first assignee.
	UnassignedMarker = "Unassigned"
)

// ActivityLog is an append-only audit row for one observed state transition.
// IssueID is not enforced as a foreign key; rows outlive the issue they describe.
type ActivityLog struct {
	ID             int64          `json:"id" db:"id"`
	IssueID        int64          `json:"issueId" db:"issue_id"`
	Action         ActivityAction `json:"action" db:"action"`
	OldValue       *string        `json:"oldValue" db:"old_value"`
	NewValue       *string        `json:"newValue" db:"new_value"`
	ActorID        string         `json:"actorId" db:"actor_id"`
	OrganizationID string         `json:"organizationId" db:"organization_id"`
	Timestamp      time.Time      `json:"timestamp" db:"timestamp"`
}
