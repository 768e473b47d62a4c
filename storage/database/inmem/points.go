package inmemdb

import (
	"context"

	"github.com/trezcool/ratiba/core/points"
)

type PointsRepository struct {
	db *pointsTable
}

var _ points.Repository = (*PointsRepository)(nil) // interface compliance check

func NewPointsRepository(db *DB) *PointsRepository {
	return &PointsRepository{db: db.points}
}

func (repo *PointsRepository) AddTransaction(_ context.Context, tx points.Transaction) (points.Transaction, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	tx.ID = newID("")
	repo.db.table = append(repo.db.table, tx)
	return tx, nil
}

func (repo *PointsRepository) QueryTransactions(_ context.Context, studentID string) ([]points.Transaction, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	txs := make([]points.Transaction, 0)
	for _, tx := range repo.db.table {
		if tx.StudentID == studentID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
