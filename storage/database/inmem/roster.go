package inmemdb

import (
	"context"

	"github.com/trezcool/ratiba/core/roster"
)

// RosterReader serves group rosters from memory.
type RosterReader struct {
	db *rosterTables
}

var _ roster.Reader = (*RosterReader)(nil) // interface compliance check

func NewRosterReader(db *DB) *RosterReader {
	return &RosterReader{db: db.roster}
}

func (r *RosterReader) AddStudents(groupID string, students ...roster.Student) {
	r.db.Lock()
	defer r.db.Unlock()
	r.db.students[groupID] = append(r.db.students[groupID], students...)
}

func (r *RosterReader) AddProfile(p roster.Profile) {
	r.db.Lock()
	defer r.db.Unlock()
	r.db.profiles[p.ID] = p
}

// Deny forbids actorID from reading the roster of groupID.
func (r *RosterReader) Deny(groupID, actorID string) {
	r.db.Lock()
	defer r.db.Unlock()
	if r.db.denied[groupID] == nil {
		r.db.denied[groupID] = make(map[string]bool)
	}
	r.db.denied[groupID][actorID] = true
}

func (r *RosterReader) ListGroupStudents(ctx context.Context, groupID string) ([]roster.Student, error) {
	r.db.RLock()
	defer r.db.RUnlock()
	if r.db.denied[groupID][roster.ActorFrom(ctx)] {
		return nil, roster.ErrForbidden
	}
	return append([]roster.Student(nil), r.db.students[groupID]...), nil
}

func (r *RosterReader) GetProfile(_ context.Context, userID string) (roster.Profile, error) {
	r.db.RLock()
	defer r.db.RUnlock()
	if p, ok := r.db.profiles[userID]; ok {
		return p, nil
	}
	return roster.Profile{}, roster.ErrNotFound
}
