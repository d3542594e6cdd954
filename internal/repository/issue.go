package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/orgissues/internal/domain"
)

var issueColumns = []string{
	"id", "title", "description", "status", "priority",
	"assignee_id", "organization_id", "created_at", "updated_at",
}

// IssueRepository handles issue data access. It filters by the organization
// id it is given and performs no tenant checks of its own.
type IssueRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db, sb: mustBuilder(db)}
}

// Create inserts an issue and returns the stored row.
func (r *IssueRepository) Create(ctx context.Context, in domain.NewIssue) (*domain.Issue, error) {
	query, args, err := r.sb.Insert("issues").
		Columns("title", "description", "status", "priority", "assignee_id", "organization_id", "created_at", "updated_at").
		Values(in.Title, in.Description, string(in.Status), string(in.Priority), in.AssigneeID, in.OrganizationID, in.CreatedAt, in.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert issue: %w", err)
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}

	return r.FindByID(ctx, id, in.OrganizationID)
}

// ListByOrganization returns the organization's issues, newest first.
func (r *IssueRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.Issue, error) {
	query, args, err := r.sb.Select(issueColumns...).
		From("issues").
		Where(sq.Eq{"organization_id": organizationID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list issues: %w", err)
	}

	issues := []domain.Issue{}
	if err := r.db.SelectContext(ctx, &issues, query, args...); err != nil {
		return nil, fmt.Errorf("list issues for organization %s: %w", organizationID, err)
	}
	return issues, nil
}

// FindByID retrieves an issue by id within an organization.
func (r *IssueRepository) FindByID(ctx context.Context, id int64, organizationID string) (*domain.Issue, error) {
	query, args, err := r.sb.Select(issueColumns...).
		From("issues").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find issue: %w", err)
	}

	var issue domain.Issue
	if err := r.db.GetContext(ctx, &issue, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find issue by id %d: %w", id, err)
	}
	return &issue, nil
}

// Update overwrites the non-nil columns of changes and always sets updated_at.
func (r *IssueRepository) Update(ctx context.Context, id int64, organizationID string, changes domain.IssueChanges, updatedAt time.Time) (*domain.Issue, error) {
	set := sq.Eq{"updated_at": updatedAt}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Status != nil {
		set["status"] = string(*changes.Status)
	}
	if changes.Priority != nil {
		set["priority"] = string(*changes.Priority)
	}
	if changes.AssigneeID != nil {
		set["assignee_id"] = *changes.AssigneeID
	}

	query, args, err := r.sb.Update("issues").
		SetMap(set).
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update issue: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}
	if err := expectRow(res); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id, organizationID)
}

// Delete removes an issue. Activity rows referencing it are left in place.
func (r *IssueRepository) Delete(ctx context.Context, id int64, organizationID string) error {
	query, args, err := r.sb.Delete("issues").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete issue: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
