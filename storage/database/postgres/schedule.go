package pgrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type (
	roomRow struct {
		ID       string `db:"id"`
		Number   string `db:"number"`
		Location string `db:"location"`
		Capacity int    `db:"capacity"`
	}

	courseRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		StartDate time.Time `db:"start_date"`
		EndDate   time.Time `db:"end_date"`
	}

	groupRow struct {
		ID           string `db:"id"`
		Name         string `db:"name"`
		CourseID     string `db:"course_id"`
		TeacherID    string `db:"teacher_id"`
		Weekday      int    `db:"weekday"`
		StartMinute  int    `db:"start_minute"`
		StudentCount int    `db:"student_count"`
	}

	lessonRow struct {
		ID              string      `db:"id"`
		Date            time.Time   `db:"date"`
		Topic           string      `db:"topic"`
		GroupID         string      `db:"group_id"`
		RoomID          string      `db:"room_id"`
		EquipmentRemark null.String `db:"equipment_remark"`
		CreatedAt       time.Time   `db:"created_at"`
		UpdatedAt       time.Time   `db:"updated_at"`
	}
)

func (r groupRow) group() schedule.Group {
	return schedule.Group{
		ID:           r.ID,
		Name:         r.Name,
		CourseID:     r.CourseID,
		TeacherID:    r.TeacherID,
		Weekday:      time.Weekday(r.Weekday),
		StartTime:    schedule.Clock(r.StartMinute),
		StudentCount: r.StudentCount,
	}
}

func newLessonRow(lsn schedule.Lesson) lessonRow {
	return lessonRow{
		ID:              lsn.ID,
		Date:            core.DateOf(lsn.Date),
		Topic:           lsn.Topic,
		GroupID:         lsn.GroupID,
		RoomID:          lsn.RoomID,
		EquipmentRemark: nullString(lsn.EquipmentRemark),
		CreatedAt:       lsn.CreatedAt.UTC(),
		UpdatedAt:       lsn.UpdatedAt.UTC(),
	}
}

func (r lessonRow) lesson() schedule.Lesson {
	return schedule.Lesson{
		ID:              r.ID,
		Date:            core.DateOf(r.Date),
		Topic:           r.Topic,
		GroupID:         r.GroupID,
		RoomID:          r.RoomID,
		EquipmentRemark: r.EquipmentRemark.String,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const lessonColumns = "id, date, topic, group_id, room_id, equipment_remark, created_at, updated_at"

type ScheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*ScheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (repo *ScheduleRepository) CreateRoom(ctx context.Context, room schedule.Room) (schedule.Room, error) {
	if room.ID == "" {
		room.ID = newID()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO room (id, number, location, capacity) VALUES ($1, $2, $3, $4)`,
		room.ID, room.Number, room.Location, room.Capacity,
	)
	return room, errors.Wrap(err, "inserting room")
}

func (repo *ScheduleRepository) CreateCourse(ctx context.Context, crs schedule.Course) (schedule.Course, error) {
	if crs.ID == "" {
		crs.ID = newID()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO course (id, name, start_date, end_date) VALUES ($1, $2, $3, $4)`,
		crs.ID, crs.Name, core.DateOf(crs.StartDate), core.DateOf(crs.EndDate),
	)
	return crs, errors.Wrap(err, "inserting course")
}

func (repo *ScheduleRepository) CreateGroup(ctx context.Context, grp schedule.Group) (schedule.Group, error) {
	if grp.ID == "" {
		grp.ID = newID()
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO student_group (id, name, course_id, teacher_id, weekday, start_minute, student_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		grp.ID, grp.Name, grp.CourseID, grp.TeacherID, int(grp.Weekday), int(grp.StartTime), grp.StudentCount,
	)
	return grp, errors.Wrap(err, "inserting group")
}

func (repo *ScheduleRepository) GetRoom(ctx context.Context, id string) (schedule.Room, error) {
	var row roomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, number, location, capacity FROM room WHERE id = $1`, id); err != nil {
		return schedule.Room{}, trapNoRowsErr(err, schedule.ErrRoomNotFound, "selecting room")
	}
	return schedule.Room(row), nil
}

func (repo *ScheduleRepository) GetCourse(ctx context.Context, id string) (schedule.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, name, start_date, end_date FROM course WHERE id = $1`, id); err != nil {
		return schedule.Course{}, trapNoRowsErr(err, schedule.ErrCourseNotFound, "selecting course")
	}
	return schedule.Course(row), nil
}

const groupQuery = `SELECT id, name, course_id, teacher_id, weekday, start_minute, student_count FROM student_group`

func (repo *ScheduleRepository) GetGroup(ctx context.Context, id string) (schedule.Group, error) {
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, groupQuery+` WHERE id = $1`, id); err != nil {
		return schedule.Group{}, trapNoRowsErr(err, schedule.ErrGroupNotFound, "selecting group")
	}
	return row.group(), nil
}

func (repo *ScheduleRepository) QueryGroups(ctx context.Context, ids ...string) ([]schedule.Group, error) {
	if len(ids) == 0 {
		return make([]schedule.Group, 0), nil
	}
	var w where
	w.add("id IN (?)", ids)
	q, args, err := w.build(repo.db, groupQuery, " ORDER BY id")
	if err != nil {
		return nil, err
	}
	var rows []groupRow
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	groups := make([]schedule.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.group())
	}
	return groups, nil
}

func (repo *ScheduleRepository) GetLesson(ctx context.Context, id string) (schedule.Lesson, error) {
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+lessonColumns+` FROM lesson WHERE id = $1`, id); err != nil {
		return schedule.Lesson{}, trapNoRowsErr(err, schedule.ErrLessonNotFound, "selecting lesson")
	}
	return row.lesson(), nil
}

func (repo *ScheduleRepository) QueryLessons(ctx context.Context, filter schedule.LessonFilter) ([]schedule.Lesson, error) {
	q, args, err := lessonWhere(filter).build(repo.db, `SELECT `+lessonColumns+` FROM lesson`, ` ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	var rows []lessonRow
	if err = repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	lessons := make([]schedule.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.lesson())
	}
	return lessons, nil
}

func lessonWhere(filter schedule.LessonFilter) *where {
	w := new(where)
	if filter.GroupID != "" {
		w.add("group_id = ?", filter.GroupID)
	}
	if filter.RoomID != "" {
		w.add("room_id = ?", filter.RoomID)
	}
	if !filter.Date.IsZero() {
		w.add("date = ?", core.DateOf(filter.Date))
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", core.DateOf(filter.From))
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", core.DateOf(filter.To))
	}
	return w
}

func (repo *ScheduleRepository) CreateLessons(ctx context.Context, lessons ...schedule.Lesson) ([]schedule.Lesson, error) {
	created := make([]schedule.Lesson, 0, len(lessons))
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, lsn := range lessons {
			if lsn.ID == "" {
				lsn.ID = newID()
			}
			row := newLessonRow(lsn)
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO lesson (`+lessonColumns+`)
				VALUES (:id, :date, :topic, :group_id, :room_id, :equipment_remark, :created_at, :updated_at)`,
				row,
			)
			if err != nil {
				return errors.Wrap(err, "inserting lesson")
			}
			created = append(created, row.lesson())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (repo *ScheduleRepository) UpdateLesson(ctx context.Context, lsn schedule.Lesson) (schedule.Lesson, error) {
	row := newLessonRow(lsn)
	res, err := repo.db.NamedExecContext(ctx,
		`UPDATE lesson SET date = :date, topic = :topic, room_id = :room_id,
		equipment_remark = :equipment_remark, updated_at = :updated_at WHERE id = :id`,
		row,
	)
	if err != nil {
		return schedule.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if err = mustAffect(res, schedule.ErrLessonNotFound); err != nil {
		return schedule.Lesson{}, err
	}
	return repo.GetLesson(ctx, lsn.ID)
}

func (repo *ScheduleRepository) DeleteLesson(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return mustAffect(res, schedule.ErrLessonNotFound)
}
