package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/repository"
)

func submissionRecord(id, investor string, companyID uint64, state submission.State, at time.Time) *submission.Record {
	return &submission.Record{
		ID:          id,
		Investor:    investor,
		CompanyID:   companyID,
		CompanyName: "Acme",
		State:       state,
		Amount:      "100000",
		Shares:      "2222",
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestSubmissionRepository_UpsertGet(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := submissionRecord("s1", investorA, 1, submission.StateIdle, created)
	require.NoError(t, repo.Upsert(ctx, rec))

	rec.State = submission.StateAwaitingConfirmation
	rec.TxHandle = "0xabc"
	rec.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, submission.StateAwaitingConfirmation, got.State)
	require.Equal(t, "0xabc", got.TxHandle)
	require.Equal(t, "100000", got.Amount)
	require.Equal(t, "2222", got.Shares)
	require.Equal(t, uint64(1), got.CompanyID)
	require.True(t, got.CreatedAt.Equal(created))
	require.True(t, got.UpdatedAt.Equal(created.Add(time.Minute)))
}

func TestSubmissionRepository_GetMissing(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSubmissionRepository(db)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmissionRepository_UpsertRequiresID(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSubmissionRepository(db)

	err := repo.Upsert(context.Background(), &submission.Record{})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestSubmissionRepository_ListFilters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewSubmissionRepository(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, submissionRecord("s1", investorA, 1, submission.StateConfirmed, base)))
	require.NoError(t, repo.Upsert(ctx, submissionRecord("s2", investorA, 2, submission.StateFailed, base.Add(time.Hour))))
	require.NoError(t, repo.Upsert(ctx, submissionRecord("s3", investorB, 1, submission.StateIdle, base.Add(2*time.Hour))))

	recs, err := repo.List(ctx, submission.ListOptions{Investor: investorA})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "s2", recs[0].ID)
	require.Equal(t, "s1", recs[1].ID)

	company := uint64(1)
	recs, err = repo.List(ctx, submission.ListOptions{CompanyID: &company})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	recs, err = repo.List(ctx, submission.ListOptions{
		States: []submission.State{submission.StateConfirmed, submission.StateIdle},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "s3", recs[0].ID)

	recs, err = repo.List(ctx, submission.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "s2", recs[0].ID)
}
