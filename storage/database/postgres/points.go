package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/points"
)

type transactionRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	LessonID  null.String `db:"lesson_id"`
	Delta     int         `db:"delta"`
	Reason    string      `db:"reason"`
	CreatedAt time.Time   `db:"created_at"`
}

type PointsRepository struct {
	db *sqlx.DB
}

var _ points.Repository = (*PointsRepository)(nil) // interface compliance check

func NewPointsRepository(db *sqlx.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

func (repo *PointsRepository) AddTransaction(ctx context.Context, tx points.Transaction) (points.Transaction, error) {
	tx.ID = newID()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO points_transaction (id, student_id, lesson_id, delta, reason, created_at)
		VALUES (:id, :student_id, :lesson_id, :delta, :reason, :created_at)`,
		transactionRow{
			ID:        tx.ID,
			StudentID: tx.StudentID,
			LessonID:  nullString(tx.LessonID),
			Delta:     tx.Delta,
			Reason:    string(tx.Reason),
			CreatedAt: tx.CreatedAt.UTC(),
		},
	)
	return tx, errors.Wrap(err, "inserting points transaction")
}

func (repo *PointsRepository) QueryTransactions(ctx context.Context, studentID string) ([]points.Transaction, error) {
	var rows []transactionRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, student_id, lesson_id, delta, reason, created_at
		FROM points_transaction WHERE student_id = $1 ORDER BY created_at, id`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting points transactions")
	}
	txs := make([]points.Transaction, 0, len(rows))
	for _, r := range rows {
		txs = append(txs, points.Transaction{
			ID:        r.ID,
			StudentID: r.StudentID,
			LessonID:  r.LessonID.String,
			Delta:     r.Delta,
			Reason:    points.Reason(r.Reason),
			CreatedAt: r.CreatedAt,
		})
	}
	return txs, nil
}
