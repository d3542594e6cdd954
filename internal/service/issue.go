package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sumire/orgissues/internal/domain"
)

// IssueStore defines the issue data access interface consumed by IssueService.
// Every method is scoped by the organization id it receives.
type IssueStore interface {
	Create(ctx context.Context, in domain.NewIssue) (*domain.Issue, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Issue, error)
	FindByID(ctx context.Context, id int64, organizationID string) (*domain.Issue, error)
	Update(ctx context.Context, id int64, organizationID string, changes domain.IssueChanges, updatedAt time.Time) (*domain.Issue, error)
	Delete(ctx context.Context, id int64, organizationID string) error
}

// ActivityStore defines the append-only activity log interface consumed by IssueService.
type ActivityStore interface {
	Append(ctx context.Context, entry domain.ActivityLog) (*domain.ActivityLog, error)
	ListByIssue(ctx context.Context, issueID int64, organizationID string) ([]domain.ActivityLog, error)
}

// IssueOptions holds optional IssueService behaviour.
type IssueOptions struct {
	// AuditDeletes appends a DELETE activity entry after an issue is removed.
	AuditDeletes bool
	// Now overrides the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// CreateIssueInput is a validated create payload.
type CreateIssueInput struct {
	Title       string
	Description string
	Priority    *domain.IssuePriority
	AssigneeID  *string
}

// UpdateIssueInput is a validated update payload. Nil fields are not changed.
type UpdateIssueInput struct {
	Title       *string
	Description *string
	Status      *domain.IssueStatus
	Priority    *domain.IssuePriority
	AssigneeID  *string
}

// IssueService orchestrates tenant-scoped issue operations and their audit trail.
type IssueService struct {
	issues   IssueStore
	activity ActivityStore
	log      *zap.Logger
	opts     IssueOptions
}

// NewIssueService creates a new IssueService.
func NewIssueService(issues IssueStore, activity ActivityStore, log *zap.Logger, opts IssueOptions) *IssueService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IssueService{
		issues:   issues,
		activity: activity,
		log:      log,
		opts:     opts,
	}
}

// Create stores a new OPEN issue owned by the caller's organization and
// records a CREATE activity entry.
func (s *IssueService) Create(ctx context.Context, tc domain.TenantContext, in CreateIssueInput) (*domain.Issue, error) {
	priority := domain.IssuePriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
	}

	issue, err := s.issues.Create(ctx, domain.NewIssue{
		Title:          in.Title,
		Description:    in.Description,
		Status:         domain.IssueStatusOpen,
		Priority:       priority,
		AssigneeID:     in.AssigneeID,
		OrganizationID: tc.OrganizationID,
		CreatedAt:      s.opts.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	if err := s.record(ctx, tc, issue.ID, domain.ActivityCreate, nil, strPtr(domain.CreatedMarker)); err != nil {
		return nil, err
	}

	s.log.Info("issue created",
		zap.Int64("issue_id", issue.ID),
		zap.String("organization_id", tc.OrganizationID),
		zap.String("actor_id", tc.UserID),
	)
	return issue, nil
}

// List returns every issue of the organization, newest first.
func (s *IssueService) List(ctx context.Context, organizationID string) ([]domain.Issue, error) {
	issues, err := s.issues.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	return issues, nil
}

// Get returns the issue with id inside the organization. An issue owned by
// another organization yields the same *domain.NotFoundError as a missing one.
func (s *IssueService) Get(ctx context.Context, id int64, organizationID string) (*domain.Issue, error) {
	issue, err := s.issues.FindByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Resource: "issue", ID: id}
		}
		return nil, err
	}
	return issue, nil
}

// Update applies the provided fields and records status and assignee
// transitions. The issue write and the activity writes are not atomic.
func (s *IssueService) Update(ctx context.Context, tc domain.TenantContext, id int64, in UpdateIssueInput) (*domain.Issue, error) {
	before, err := s.Get(ctx, id, tc.OrganizationID)
	if err != nil {
		return nil, err
	}

	updated, err := s.issues.Update(ctx, id, tc.OrganizationID, domain.IssueChanges{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
	}, s.opts.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Resource: "issue", ID: id}
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}

	if in.Status != nil && *in.Status != before.Status {
		if err := s.record(ctx, tc, id, domain.ActivityUpdateStatus,
			strPtr(string(before.Status)), strPtr(string(*in.Status))); err != nil {
			return nil, err
		}
	}

	if in.AssigneeID != nil && (before.AssigneeID == nil || *in.AssigneeID != *before.AssigneeID) {
		old := domain.UnassignedMarker
		if before.AssigneeID != nil {
			old = *before.AssigneeID
		}
		if err := s.record(ctx, tc, id, domain.ActivityUpdateAssignee, strPtr(old), in.AssigneeID); err != nil {
			return nil, err
		}
	}

	return updated, nil
}

// Delete removes the issue. Existing activity rows are kept. A DELETE entry
// is recorded only when AuditDeletes is set.
func (s *IssueService) Delete(ctx context.Context, tc domain.TenantContext, id int64) error {
	before, err := s.Get(ctx, id, tc.OrganizationID)
	if err != nil {
		return err
	}

	if err := s.issues.Delete(ctx, id, tc.OrganizationID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.NotFoundError{Resource: "issue", ID: id}
		}
		return fmt.Errorf("delete issue: %w", err)
	}

	if s.opts.AuditDeletes {
		if err := s.record(ctx, tc, id, domain.ActivityDelete, strPtr(string(before.Status)), nil); err != nil {
			return err
		}
	}

	s.log.Info("issue deleted",
		zap.Int64("issue_id", id),
		zap.String("organization_id", tc.OrganizationID),
		zap.String("actor_id", tc.UserID),
	)
	return nil
}

// Activity returns the audit trail of an issue the organization owns, oldest first.
func (s *IssueService) Activity(ctx context.Context, id int64, organizationID string) ([]domain.ActivityLog, error) {
	if _, err := s.Get(ctx, id, organizationID); err != nil {
		return nil, err
	}

	logs, err := s.activity.ListByIssue(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []domain.ActivityLog{}
	}
	return logs, nil
}

func (s *IssueService) record(ctx context.Context, tc domain.TenantContext, issueID int64, action domain.ActivityAction, oldValue, newValue *string) error {
	entry, err := s.activity.Append(ctx, domain.ActivityLog{
		IssueID:        issueID,
		Action:         action,
		OldValue:       oldValue,
		NewValue:       newValue,
		ActorID:        tc.UserID,
		OrganizationID: tc.OrganizationID,
		Timestamp:      s.opts.Now(),
	})
	if err != nil {
		return fmt.Errorf("record %s activity: %w", action, err)
	}

	s.log.Debug("audit event",
		zap.Bool("audit", true),
		zap.Int64("activity_id", entry.ID),
		zap.Int64("issue_id", issueID),
		zap.String("action", string(action)),
		zap.String("actor_id", tc.UserID),
		zap.String("organization_id", tc.OrganizationID),
	)
	return nil
}

func strPtr(s string) *string {
	return &s
}
