package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/substitution"
)

type substitutionRow struct {
	ID           string      `db:"id"`
	LessonID     string      `db:"lesson_id"`
	ReportedBy   string      `db:"reported_by"`
	SubstituteID null.String `db:"substitute_id"`
	Reason       null.String `db:"reason"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r substitutionRow) substitution() substitution.Substitution {
	return substitution.Substitution{
		ID:           r.ID,
		LessonID:     r.LessonID,
		ReportedBy:   r.ReportedBy,
		SubstituteID: r.SubstituteID.String,
		Reason:       r.Reason.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// nullString stores "" as NULL
func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

const substitutionColumns = "id, lesson_id, reported_by, substitute_id, reason, created_at, updated_at"

type SubstitutionRepository struct {
	db *sqlx.DB
}

var _ substitution.Repository = (*SubstitutionRepository)(nil) // interface compliance check

func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

func (repo *SubstitutionRepository) CreateSubstitution(ctx context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	sub.ID = newID()
	row := substitutionRow{
		ID:           sub.ID,
		LessonID:     sub.LessonID,
		ReportedBy:   sub.ReportedBy,
		SubstituteID: nullString(sub.SubstituteID),
		Reason:       nullString(sub.Reason),
		CreatedAt:    sub.CreatedAt.UTC(),
		UpdatedAt:    sub.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO substitution (`+substitutionColumns+`)
		VALUES (:id, :lesson_id, :reported_by, :substitute_id, :reason, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return substitution.Substitution{}, substitution.ErrDuplicate
		}
		return substitution.Substitution{}, errors.Wrap(err, "inserting substitution")
	}
	return sub, nil
}

func (repo *SubstitutionRepository) GetSubstitution(ctx context.Context, id string) (substitution.Substitution, error) {
	var row substitutionRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+substitutionColumns+` FROM substitution WHERE id = $1`, id)
	if err != nil {
		return substitution.Substitution{}, trapNoRowsErr(err, substitution.ErrNotFound, "selecting substitution")
	}
	return row.substitution(), nil
}

func (repo *SubstitutionRepository) QuerySubstitutions(ctx context.Context, filter substitution.QueryFilter) ([]substitution.Substitution, error) {
	var w where
	if filter.ReportedBy != "" {
		w.add("reported_by = ?", filter.ReportedBy)
	}
	if filter.SubstituteID != "" {
		w.add("substitute_id = ?", filter.SubstituteID)
	}
	if filter.Unclaimed {
		w.conds = append(w.conds, "substitute_id IS NULL")
	}
	if len(filter.LessonIDs) > 0 {
		w.add("lesson_id IN (?)", filter.LessonIDs)
	}
	q, args, err := w.build(repo.db, `SELECT `+substitutionColumns+` FROM substitution`, ` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	var rows []substitutionRow
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting substitutions")
	}
	subs := make([]substitution.Substitution, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.substitution())
	}
	return subs, nil
}

func (repo *SubstitutionRepository) SetSubstitute(ctx context.Context, id, from, to string, updatedAt time.Time) (substitution.Substitution, error) {
	var row substitutionRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE substitution SET substitute_id = $1, updated_at = $2
		WHERE id = $3 AND substitute_id IS NOT DISTINCT FROM $4
		RETURNING `+substitutionColumns,
		nullString(to), updatedAt.UTC(), id, nullString(from),
	)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return substitution.Substitution{}, repo.missOrChanged(ctx, id)
		}
		return substitution.Substitution{}, errors.Wrap(err, "updating substitution")
	}
	return row.substitution(), nil
}

func (repo *SubstitutionRepository) DeleteSubstitution(ctx context.Context, id string, onlyOpen bool) error {
	q := `DELETE FROM substitution WHERE id = $1`
	if onlyOpen {
		q += ` AND substitute_id IS NULL`
	}
	res, err := repo.db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrap(err, "deleting substitution")
	}
	if err = mustAffect(res, substitution.ErrNotFound); err == substitution.ErrNotFound && onlyOpen {
		return repo.missOrChanged(ctx, id)
	}
	return err
}

// missOrChanged tells why a conditional write on id touched no row.
func (repo *SubstitutionRepository) missOrChanged(ctx context.Context, id string) error {
	var found bool
	if err := repo.db.GetContext(ctx, &found, `SELECT EXISTS (SELECT 1 FROM substitution WHERE id = $1)`, id); err != nil {
		return errors.Wrap(err, "checking substitution")
	}
	if found {
		return substitution.ErrChanged
	}
	return substitution.ErrNotFound
}
