package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ratiba/core/attendance"
)

type PresenceRepository struct {
	db *presenceTable
}

var _ attendance.RecordStore = (*PresenceRepository)(nil) // interface compliance check

func NewPresenceRepository(db *DB) *PresenceRepository {
	return &PresenceRepository{db: db.presence}
}

func (repo *PresenceRepository) CreatePresence(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, r := range repo.db.table {
		if r.Key() == rec.Key() {
			return attendance.Record{}, attendance.ErrRecordExists
		}
	}
	rec.ID = newID("")
	repo.db.table[rec.ID] = rec
	return rec, nil
}

func (repo *PresenceRepository) UpdatePresence(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	old, ok := repo.db.table[rec.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	old.Present = rec.Present
	old.UpdatedAt = rec.UpdatedAt
	repo.db.table[rec.ID] = old
	return old, nil
}

func (repo *PresenceRepository) DeletePresence(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return attendance.ErrRecordNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *PresenceRepository) QueryPresence(_ context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make(map[string]bool, len(filter.LessonIDs))
	for _, id := range filter.LessonIDs {
		lessons[id] = true
	}
	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if len(lessons) > 0 && !lessons[rec.LessonID] {
			continue
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}
