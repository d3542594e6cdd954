package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sumire/orgissues/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:", PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, NewMigrator(db, zaptest.NewLogger(t)).Up(ctx))
	return db
}

func strPtr(s string) *string { return &s }

func newIssue(org, title string, at time.Time) domain.NewIssue {
	return domain.NewIssue{
		Title:          title,
		Description:    title + " description",
		Status:         domain.IssueStatusOpen,
		Priority:       domain.IssuePriorityMedium,
		OrganizationID: org,
		CreatedAt:      at,
	}
}

func TestMigrator_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	m := NewMigrator(db, zaptest.NewLogger(t))

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	require.NoError(t, m.Up(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestScriptVersion(t *testing.T) {
	v, err := scriptVersion("0002_create_activity_logs.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = scriptVersion("create.sql")
	require.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever", PoolOptions{})
	require.Error(t, err)
}

func TestIssueRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewIssueRepository(newTestDB(t))

	in := newIssue("org1", "Bug", baseTime)
	in.AssigneeID = strPtr("u9")
	in.Priority = domain.IssuePriorityHigh

	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Bug", created.Title)
	assert.Equal(t, domain.IssueStatusOpen, created.Status)
	assert.Equal(t, domain.IssuePriorityHigh, created.Priority)
	assert.Equal(t, "org1", created.OrganizationID)
	require.NotNil(t, created.AssigneeID)
	assert.Equal(t, "u9", *created.AssigneeID)
	assert.True(t, created.CreatedAt.Equal(baseTime), "created_at %v", created.CreatedAt)
	assert.True(t, created.UpdatedAt.Equal(baseTime), "updated_at %v", created.UpdatedAt)

	found, err := repo.FindByID(ctx, created.ID, "org1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByID(ctx, created.ID, "org2")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByID(ctx, created.ID+100, "org1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIssueRepository_ListByOrganization(t *testing.T) {
	ctx := context.Background()
	repo := NewIssueRepository(newTestDB(t))

	first, err := repo.Create(ctx, newIssue("org1", "first", baseTime))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newIssue("org2", "other tenant", baseTime.Add(time.Minute)))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newIssue("org1", "second", baseTime.Add(2*time.Minute)))
	require.NoError(t, err)

	issues, err := repo.ListByOrganization(ctx, "org1")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, second.ID, issues[0].ID)
	assert.Equal(t, first.ID, issues[1].ID)

	empty, err := repo.ListByOrganization(ctx, "org3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestIssueRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewIssueRepository(newTestDB(t))

	created, err := repo.Create(ctx, newIssue("org1", "Bug", baseTime))
	require.NoError(t, err)

	status := domain.IssueStatusInProgress
	later := baseTime.Add(time.Hour)
	updated, err := repo.Update(ctx, created.ID, "org1", domain.IssueChanges{
		Status:     &status,
		AssigneeID: strPtr("u2"),
	}, later)
	require.NoError(t, err)

	assert.Equal(t, domain.IssueStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, "u2", *updated.AssigneeID)
	assert.Equal(t, "Bug", updated.Title)
	assert.Equal(t, domain.IssuePriorityMedium, updated.Priority)
	assert.True(t, updated.UpdatedAt.Equal(later))
	assert.True(t, updated.CreatedAt.Equal(baseTime))

	// no column changes still refreshes updated_at
	latest := later.Add(time.Hour)
	touched, err := repo.Update(ctx, created.ID, "org1", domain.IssueChanges{}, latest)
	require.NoError(t, err)
	assert.True(t, touched.UpdatedAt.Equal(latest))

	_, err = repo.Update(ctx, created.ID, "org2", domain.IssueChanges{Title: strPtr("hijack")}, latest)
	require.ErrorIs(t, err, domain.ErrNotFound)

	unchanged, err := repo.FindByID(ctx, created.ID, "org1")
	require.NoError(t, err)
	assert.Equal(t, "Bug", unchanged.Title)
}

func TestIssueRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewIssueRepository(db)
	activity := NewActivityRepository(db)

	created, err := repo.Create(ctx, newIssue("org1", "Bug", baseTime))
	require.NoError(t, err)
	_, err = activity.Append(ctx, domain.ActivityLog{
		IssueID:        created.ID,
		Action:         domain.ActivityCreate,
		NewValue:       strPtr(domain.CreatedMarker),
		ActorID:        "u1",
		OrganizationID: "org1",
		Timestamp:      baseTime,
	})
	require.NoError(t, err)

	require.ErrorIs(t, repo.Delete(ctx, created.ID, "org2"), domain.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, created.ID, "org1"))
	require.ErrorIs(t, repo.Delete(ctx, created.ID, "org1"), domain.ErrNotFound)

	_, err = repo.FindByID(ctx, created.ID, "org1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// log rows orphan rather than cascade
	logs, err := activity.ListByIssue(ctx, created.ID, "org1")
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestActivityRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(newTestDB(t))

	first, err := repo.Append(ctx, domain.ActivityLog{
		IssueID:        1,
		Action:         domain.ActivityCreate,
		NewValue:       strPtr(domain.CreatedMarker),
		ActorID:        "u1",
		OrganizationID: "org1",
		Timestamp:      baseTime,
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Nil(t, first.OldValue)

	_, err = repo.Append(ctx, domain.ActivityLog{
		IssueID:        1,
		Action:         domain.ActivityUpdateStatus,
		OldValue:       strPtr("OPEN"),
		NewValue:       strPtr("IN_PROGRESS"),
		ActorID:        "u2",
		OrganizationID: "org1",
		Timestamp:      baseTime.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = repo.Append(ctx, domain.ActivityLog{
		IssueID:        1,
		Action:         domain.ActivityCreate,
		ActorID:        "intruder",
		OrganizationID: "org2",
		Timestamp:      baseTime,
	})
	require.NoError(t, err)

	logs, err := repo.ListByIssue(ctx, 1, "org1")
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, domain.ActivityCreate, logs[0].Action)
	assert.Nil(t, logs[0].OldValue)
	require.NotNil(t, logs[0].NewValue)
	assert.Equal(t, domain.CreatedMarker, *logs[0].NewValue)
	assert.True(t, logs[0].Timestamp.Equal(baseTime))

	assert.Equal(t, domain.ActivityUpdateStatus, logs[1].Action)
	assert.Equal(t, "OPEN", *logs[1].OldValue)
	assert.Equal(t, "IN_PROGRESS", *logs[1].NewValue)
	assert.Equal(t, "u2", logs[1].ActorID)

	none, err := repo.ListByIssue(ctx, 2, "org1")
	require.NoError(t, err)
	assert.Empty(t, none)
}
