package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/capvault/internal/domain/activity"
	"github.com/rpggio/capvault/internal/repository/mocks"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()
	investor := "0xabc"

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		SubmissionID: "sub1",
		CompanyID:    1,
		ActivityType: activity.TypeSubmissionStarted,
		Summary:      "started",
	}

	repo.On("Log", ctx, investor, entry).Return(nil)
	repo.On("List", ctx, investor, activity.ListActivityOptions{SubmissionID: "sub1", Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, investor, entry))
	require.False(t, entry.CreatedAt.IsZero())
	require.Equal(t, investor, entry.Investor)

	entries, err := svc.GetRecentActivity(ctx, investor, activity.ListActivityOptions{SubmissionID: "sub1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_RejectsEmptyEntry(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "0xabc", nil), activity.ErrInvalidInput)
	require.ErrorIs(t, svc.LogActivity(context.Background(), "0xabc", &activity.ActivityEntry{}), activity.ErrInvalidInput)
}

func TestActivityService_RecordSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("Log", ctx, "0xabc", mock.MatchedBy(func(e *activity.ActivityEntry) bool {
		return e.ActivityType == activity.TypeSubmissionFailed && e.Details == `{"reason":"rejected"}`
	})).Return(errors.New("disk full"))

	svc := activity.NewService(repo, nil)
	svc.Record(ctx, "0xabc", activity.TypeSubmissionFailed, "sub1", 1, "failed", map[string]string{"reason": "rejected"})
	repo.AssertExpectations(t)
}
