package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

type op int

const (
	opNone op = iota
	opCreate
	opUpdate
	opDelete
)

type pointChange int

const (
	pointsNone pointChange = iota
	pointsAward
	pointsRevoke
)

// PendingEdit is a local, uncommitted change of one cell.
// Original is the persisted state observed before the first local edit of the cell.
type PendingEdit struct {
	Key      CellKey `json:"key"`
	Value    State   `json:"value"`
	Original State   `json:"original"`
	RecordID string  `json:"-"`
}

func (e PendingEdit) op() op {
	switch {
	case e.Value == e.Original:
		return opNone
	case e.RecordID == "":
		if e.Value == Unknown {
			return opNone
		}
		return opCreate
	case e.Value == Unknown:
		return opDelete
	default:
		return opUpdate
	}
}

func (e PendingEdit) pointChange() pointChange {
	switch {
	case e.Value == Present && e.Original != Present:
		return pointsAward
	case e.Original == Present && e.Value != Present:
		return pointsRevoke
	default:
		return pointsNone
	}
}

// CommitResult reports what a commit did. Failed edits are still pending.
// PointFailures lists committed cells whose point adjustment could not be applied.
type CommitResult struct {
	Committed     int       `json:"committed"`
	Unchanged     int       `json:"unchanged"`
	Failed        []CellKey `json:"failed"`
	PointFailures []CellKey `json:"point_failures"`
}

func (r CommitResult) OK() bool {
	return len(r.Failed) == 0
}

// Ledger holds the attendance of an editing session: the persisted records
// of the loaded lessons plus the local, uncommitted edits.
// Edits made by other sessions are never merged in; the last commit wins.
type Ledger struct {
	mu          sync.Mutex
	editorID    string
	guard       EditGuard
	store       RecordStore
	points      PointsAwarder
	logger      core.Logger
	callTimeout time.Duration

	groups  map[string]string // lessonID -> groupID
	records map[CellKey]Record
	pending map[CellKey]PendingEdit
}

// NewLedger returns an empty ledger for editorID. A nil guard lets the editor write every lesson.
func NewLedger(editorID string, guard EditGuard, store RecordStore, points PointsAwarder, logger core.Logger, callTimeout time.Duration) *Ledger {
	return &Ledger{
		editorID:    editorID,
		guard:       guard,
		store:       store,
		points:      points,
		logger:      logger,
		callTimeout: callTimeout,
		groups:      make(map[string]string),
		records:     make(map[CellKey]Record),
		pending:     make(map[CellKey]PendingEdit),
	}
}

// Load registers lessons (lessonID -> groupID) and replaces their persisted records.
// Pending edits are kept.
func (l *Ledger) Load(lessonGroups map[string]string, records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for lessonID, groupID := range lessonGroups {
		l.groups[lessonID] = groupID
	}
	for key := range l.records {
		if _, ok := lessonGroups[key.LessonID]; ok {
			delete(l.records, key)
		}
	}
	for _, rec := range records {
		l.records[rec.Key()] = rec
	}
}

// SetGuard swaps the edit permissions, e.g. after a substitution changed hands.
func (l *Ledger) SetGuard(guard EditGuard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guard = guard
}

func (l *Ledger) EditorID() string {
	return l.editorID
}

func (l *Ledger) persisted(key CellKey) State {
	if rec, ok := l.records[key]; ok {
		return rec.State()
	}
	return Unknown
}

// GetState returns the pending value of the cell, else its persisted value, else Unknown.
func (l *Ledger) GetState(lessonID, studentID string) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := CellKey{LessonID: lessonID, StudentID: studentID}
	if edit, ok := l.pending[key]; ok {
		return edit.Value
	}
	return l.persisted(key)
}

// CanEdit tells whether the ledger's editor may write the lesson's cells.
func (l *Ledger) CanEdit(lessonID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canEdit(lessonID)
}

func (l *Ledger) canEdit(lessonID string) bool {
	return l.guard == nil || l.guard.CanEdit(l.editorID, lessonID)
}

// SetPending records value as the desired state of the cell, overwriting any earlier pending value.
func (l *Ledger) SetPending(lessonID, studentID string, value State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.canEdit(lessonID) {
		return ErrLocked
	}

	key := CellKey{LessonID: lessonID, StudentID: studentID}
	edit, ok := l.pending[key]
	if !ok {
		edit = PendingEdit{Key: key, Original: l.persisted(key)}
		if rec, exists := l.records[key]; exists {
			edit.RecordID = rec.ID
		}
	}
	edit.Value = value
	l.pending[key] = edit
	return nil
}

// Pending lists the uncommitted edits, ordered by lesson then student.
func (l *Ledger) Pending() []PendingEdit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selectPending(func(PendingEdit) bool { return true })
}

func (l *Ledger) HasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

func (l *Ledger) selectPending(keep func(PendingEdit) bool) []PendingEdit {
	edits := make([]PendingEdit, 0, len(l.pending))
	for _, edit := range l.pending {
		if keep(edit) {
			edits = append(edits, edit)
		}
	}
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Key.LessonID != edits[j].Key.LessonID {
			return edits[i].Key.LessonID < edits[j].Key.LessonID
		}
		return edits[i].Key.StudentID < edits[j].Key.StudentID
	})
	return edits
}

func (l *Ledger) inGroup(groupID string) func(PendingEdit) bool {
	return func(edit PendingEdit) bool {
		return l.groups[edit.Key.LessonID] == groupID
	}
}

// DiscardAll drops every pending edit.
func (l *Ledger) DiscardAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = make(map[CellKey]PendingEdit)
}

// DiscardGroup drops the pending edits of the group's lessons.
func (l *Ledger) DiscardGroup(groupID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, edit := range l.selectPending(l.inGroup(groupID)) {
		delete(l.pending, edit.Key)
	}
}

// CommitAll persists every pending edit.
func (l *Ledger) CommitAll(ctx context.Context) CommitResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, l.selectPending(func(PendingEdit) bool { return true }))
}

// CommitGroup persists the pending edits of the group's lessons only.
func (l *Ledger) CommitGroup(ctx context.Context, groupID string) CommitResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, l.selectPending(l.inGroup(groupID)))
}

func (l *Ledger) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.callTimeout > 0 {
		return context.WithTimeout(ctx, l.callTimeout)
	}
	return context.WithCancel(ctx)
}

// commit issues one store call per changed cell, then applies the point
// adjustments of the cells that were written. Record writes are never rolled
// back because of a point failure.
func (l *Ledger) commit(ctx context.Context, edits []PendingEdit) CommitResult {
	res := CommitResult{Failed: make([]CellKey, 0), PointFailures: make([]CellKey, 0)}
	written := make([]PendingEdit, 0, len(edits))

	for _, edit := range edits {
		if edit.op() == opNone {
			delete(l.pending, edit.Key)
			res.Unchanged++
			continue
		}
		if err := l.write(ctx, edit); err != nil {
			l.logger.Warn(fmt.Sprintf("committing attendance of student %s at lesson %s: %v", edit.Key.StudentID, edit.Key.LessonID, err), err)
			res.Failed = append(res.Failed, edit.Key)
			continue
		}
		delete(l.pending, edit.Key)
		written = append(written, edit)
		res.Committed++
	}

	for _, edit := range written {
		if err := l.adjustPoints(ctx, edit); err != nil {
			l.logger.Error(fmt.Sprintf("adjusting points of student %s for lesson %s: %v", edit.Key.StudentID, edit.Key.LessonID, err), err)
			res.PointFailures = append(res.PointFailures, edit.Key)
		}
	}
	return res
}

func (l *Ledger) write(ctx context.Context, edit PendingEdit) error {
	callCtx, cancel := l.callContext(ctx)
	defer cancel()

	now := core.NowFunc().UTC()
	switch edit.op() {
	case opCreate:
		rec, err := l.store.CreatePresence(callCtx, Record{
			LessonID:  edit.Key.LessonID,
			StudentID: edit.Key.StudentID,
			Present:   edit.Value == Present,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "creating presence")
		}
		l.records[edit.Key] = rec
	case opUpdate:
		rec := l.records[edit.Key]
		rec.ID = edit.RecordID
		rec.LessonID, rec.StudentID = edit.Key.LessonID, edit.Key.StudentID
		rec.Present = edit.Value == Present
		rec.UpdatedAt = now
		rec, err := l.store.UpdatePresence(callCtx, rec)
		if err != nil {
			return errors.Wrap(err, "updating presence")
		}
		l.records[edit.Key] = rec
	case opDelete:
		if err := l.store.DeletePresence(callCtx, edit.RecordID); err != nil {
			return errors.Wrap(err, "deleting presence")
		}
		delete(l.records, edit.Key)
	}
	return nil
}

func (l *Ledger) adjustPoints(ctx context.Context, edit PendingEdit) error {
	if l.points == nil {
		return nil
	}
	callCtx, cancel := l.callContext(ctx)
	defer cancel()

	switch edit.pointChange() {
	case pointsAward:
		return l.points.AwardAttendance(callCtx, edit.Key.StudentID, edit.Key.LessonID)
	case pointsRevoke:
		return l.points.RevokeAttendance(callCtx, edit.Key.StudentID, edit.Key.LessonID)
	}
	return nil
}
