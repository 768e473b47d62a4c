package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/ratiba/core/substitution"
)

type SubstitutionRepository struct {
	db *substitutionTable
}

var _ substitution.Repository = (*SubstitutionRepository)(nil) // interface compliance check

func NewSubstitutionRepository(db *DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db.substitution}
}

func (repo *SubstitutionRepository) CreateSubstitution(_ context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.table {
		if s.LessonID == sub.LessonID {
			return substitution.Substitution{}, substitution.ErrDuplicate
		}
	}
	sub.ID = newID("")
	repo.db.table[sub.ID] = sub
	return sub, nil
}

func (repo *SubstitutionRepository) GetSubstitution(_ context.Context, id string) (substitution.Substitution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if sub, ok := repo.db.table[id]; ok {
		return sub, nil
	}
	return substitution.Substitution{}, substitution.ErrNotFound
}

func (repo *SubstitutionRepository) QuerySubstitutions(_ context.Context, filter substitution.QueryFilter) ([]substitution.Substitution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make(map[string]bool, len(filter.LessonIDs))
	for _, id := range filter.LessonIDs {
		lessons[id] = true
	}
	subs := make([]substitution.Substitution, 0)
	for _, sub := range repo.db.table {
		switch {
		case filter.ReportedBy != "" && sub.ReportedBy != filter.ReportedBy:
		case filter.SubstituteID != "" && sub.SubstituteID != filter.SubstituteID:
		case filter.Unclaimed && sub.SubstituteID != "":
		case len(lessons) > 0 && !lessons[sub.LessonID]:
		default:
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (repo *SubstitutionRepository) SetSubstitute(_ context.Context, id, from, to string, updatedAt time.Time) (substitution.Substitution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return substitution.Substitution{}, substitution.ErrNotFound
	}
	if sub.SubstituteID != from {
		return substitution.Substitution{}, substitution.ErrChanged
	}
	sub.SubstituteID = to
	sub.UpdatedAt = updatedAt
	repo.db.table[id] = sub
	return sub, nil
}

func (repo *SubstitutionRepository) DeleteSubstitution(_ context.Context, id string, onlyOpen bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	sub, ok := repo.db.table[id]
	if !ok {
		return substitution.ErrNotFound
	}
	if onlyOpen && sub.SubstituteID != "" {
		return substitution.ErrChanged
	}
	delete(repo.db.table, id)
	return nil
}
