package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/attendance"
)

type presenceRow struct {
	ID        string    `db:"id"`
	LessonID  string    `db:"lesson_id"`
	StudentID string    `db:"student_id"`
	Present   bool      `db:"present"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const presenceColumns = "id, lesson_id, student_id, present, created_at, updated_at"

type PresenceRepository struct {
	db *sqlx.DB
}

var _ attendance.RecordStore = (*PresenceRepository)(nil) // interface compliance check

func NewPresenceRepository(db *sqlx.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (repo *PresenceRepository) CreatePresence(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = newID()
	row := presenceRow(rec)
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO presence (`+presenceColumns+`)
		VALUES (:id, :lesson_id, :student_id, :present, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		return attendance.Record{}, errors.Wrap(err, "inserting presence")
	}
	return rec, nil
}

func (repo *PresenceRepository) UpdatePresence(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	var row presenceRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE presence SET present = $1, updated_at = $2 WHERE id = $3 RETURNING `+presenceColumns,
		rec.Present, rec.UpdatedAt.UTC(), rec.ID,
	)
	if err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrRecordNotFound, "updating presence")
	}
	return attendance.Record(row), nil
}

func (repo *PresenceRepository) DeletePresence(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM presence WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting presence")
	}
	return mustAffect(res, attendance.ErrRecordNotFound)
}

func (repo *PresenceRepository) QueryPresence(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	var w where
	if len(filter.LessonIDs) > 0 {
		w.add("lesson_id IN (?)", filter.LessonIDs)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	q, args, err := w.build(repo.db, `SELECT `+presenceColumns+` FROM presence`, ` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var rows []presenceRow
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting presence")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, attendance.Record(r))
	}
	return recs, nil
}
