// Package points keeps the append-only log of student reward points.
package points

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

const (
	AttendanceReward = 1
	RemarkPenalty    = 5
)

type Reason string

const (
	ReasonAttendance        Reason = "attendance"
	ReasonAttendanceRevoked Reason = "attendance_revoked"
	ReasonRemark            Reason = "remark"
)

type (
	Transaction struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		LessonID  string    `json:"lesson_id,omitempty"`
		Delta     int       `json:"delta"`
		Reason    Reason    `json:"reason"`
		CreatedAt time.Time `json:"created_at"`
	}

	Balance struct {
		StudentID    string        `json:"student_id"`
		Total        int           `json:"total"`
		Transactions []Transaction `json:"transactions"`
	}

	Repository interface {
		AddTransaction(ctx context.Context, tx Transaction) (Transaction, error)
		QueryTransactions(ctx context.Context, studentID string) ([]Transaction, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) add(ctx context.Context, studentID, lessonID string, delta int, reason Reason) error {
	_, err := svc.repo.AddTransaction(ctx, Transaction{
		StudentID: studentID,
		LessonID:  lessonID,
		Delta:     delta,
		Reason:    reason,
		CreatedAt: core.NowFunc().UTC(),
	})
	return errors.Wrap(err, "adding points transaction")
}

func (svc *Service) AwardAttendance(ctx context.Context, studentID, lessonID string) error {
	return svc.add(ctx, studentID, lessonID, AttendanceReward, ReasonAttendance)
}

func (svc *Service) RevokeAttendance(ctx context.Context, studentID, lessonID string) error {
	return svc.add(ctx, studentID, lessonID, -AttendanceReward, ReasonAttendanceRevoked)
}

// PenalizeRemark takes points from a student a teacher left a remark about.
func (svc *Service) PenalizeRemark(ctx context.Context, studentID, lessonID string) error {
	return svc.add(ctx, studentID, lessonID, -RemarkPenalty, ReasonRemark)
}

func (svc *Service) Balance(ctx context.Context, studentID string) (Balance, error) {
	txs, err := svc.repo.QueryTransactions(ctx, studentID)
	if err != nil {
		return Balance{}, errors.Wrap(err, "querying points transactions")
	}
	bal := Balance{StudentID: studentID, Transactions: make([]Transaction, 0, len(txs))}
	for _, tx := range txs {
		bal.Total += tx.Delta
		bal.Transactions = append(bal.Transactions, tx)
	}
	return bal, nil
}
