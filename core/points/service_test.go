package points_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/tests"
)

func TestService_Balance(t *testing.T) {
	env := testutil.NewEnv(nil)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)
	ctx := context.Background()
	svc := env.PointsSvc

	require.NoError(t, svc.AwardAttendance(ctx, "s1", "l1"))
	require.NoError(t, svc.AwardAttendance(ctx, "s1", "l2"))
	require.NoError(t, svc.RevokeAttendance(ctx, "s1", "l2"))
	require.NoError(t, svc.PenalizeRemark(ctx, "s1", "l3"))
	require.NoError(t, svc.AwardAttendance(ctx, "s2", "l1"))

	bal, err := svc.Balance(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", bal.StudentID)
	assert.Equal(t, 2*points.AttendanceReward-points.AttendanceReward-points.RemarkPenalty, bal.Total)
	if assert.Len(t, bal.Transactions, 4) {
		assert.Equal(t, points.ReasonAttendanceRevoked, bal.Transactions[2].Reason)
		assert.Equal(t, -points.RemarkPenalty, bal.Transactions[3].Delta)
		assert.Equal(t, "l3", bal.Transactions[3].LessonID)
		assert.Equal(t, now, bal.Transactions[3].CreatedAt)
		assert.NotEmpty(t, bal.Transactions[0].ID)
	}

	bal, err = svc.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, bal.Total)
	assert.NotNil(t, bal.Transactions)
}

type failingRepo struct{}

func (failingRepo) AddTransaction(context.Context, points.Transaction) (points.Transaction, error) {
	return points.Transaction{}, errors.New("connection reset")
}

func (failingRepo) QueryTransactions(context.Context, string) ([]points.Transaction, error) {
	return nil, errors.New("connection reset")
}

func TestService_repoErrors(t *testing.T) {
	svc := points.NewService(failingRepo{})
	ctx := context.Background()

	err := svc.AwardAttendance(ctx, "s1", "l1")
	if assert.Error(t, err) {
		assert.Equal(t, "adding points transaction: connection reset", err.Error())
	}
	_, err = svc.Balance(ctx, "s1")
	assert.Error(t, err)
}
