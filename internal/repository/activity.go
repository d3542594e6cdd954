package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/orgissues/internal/domain"
)

var activityColumns = []string{
	"id", "issue_id", "action", "old_value", "new_value",
	"actor_id", "organization_id", `"timestamp"`,
}

// ActivityRepository appends and reads activity log rows. Rows are never
// updated or deleted.
type ActivityRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db, sb: mustBuilder(db)}
}

// Append inserts one activity row and returns it with its assigned id.
func (r *ActivityRepository) Append(ctx context.Context, entry domain.ActivityLog) (*domain.ActivityLog, error) {
	query, args, err := r.sb.Insert("activity_logs").
		Columns("issue_id", "action", "old_value", "new_value", "actor_id", "organization_id", `"timestamp"`).
		Values(entry.IssueID, string(entry.Action), entry.OldValue, entry.NewValue, entry.ActorID, entry.OrganizationID, entry.Timestamp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert activity: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("insert %s activity for issue %d: %w", entry.Action, entry.IssueID, err)
	}
	return &entry, nil
}

// ListByIssue returns an issue's activity within an organization, oldest first.
func (r *ActivityRepository) ListByIssue(ctx context.Context, issueID int64, organizationID string) ([]domain.ActivityLog, error) {
	query, args, err := r.sb.Select(activityColumns...).
		From("activity_logs").
		Where(sq.Eq{"issue_id": issueID, "organization_id": organizationID}).
		OrderBy(`"timestamp" ASC`, "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity: %w", err)
	}

	logs := []domain.ActivityLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list activity for issue %d: %w", issueID, err)
	}
	return logs, nil
}
