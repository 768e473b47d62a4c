package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type ScheduleRepository struct {
	db *scheduleTables
}

var _ schedule.Repository = (*ScheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db.schedule}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// Catalog writes. Rooms, courses and groups come from the roster service in production.

func (repo *ScheduleRepository) CreateRoom(_ context.Context, room schedule.Room) (schedule.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	room.ID = newID(room.ID)
	repo.db.rooms[room.ID] = room
	return room, nil
}

func (repo *ScheduleRepository) CreateCourse(_ context.Context, crs schedule.Course) (schedule.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	crs.ID = newID(crs.ID)
	repo.db.courses[crs.ID] = crs
	return crs, nil
}

func (repo *ScheduleRepository) CreateGroup(_ context.Context, grp schedule.Group) (schedule.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	grp.ID = newID(grp.ID)
	repo.db.groups[grp.ID] = grp
	return grp, nil
}

func (repo *ScheduleRepository) GetRoom(_ context.Context, id string) (schedule.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if room, ok := repo.db.rooms[id]; ok {
		return room, nil
	}
	return schedule.Room{}, schedule.ErrRoomNotFound
}

func (repo *ScheduleRepository) GetCourse(_ context.Context, id string) (schedule.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if crs, ok := repo.db.courses[id]; ok {
		return crs, nil
	}
	return schedule.Course{}, schedule.ErrCourseNotFound
}

func (repo *ScheduleRepository) GetGroup(_ context.Context, id string) (schedule.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if grp, ok := repo.db.groups[id]; ok {
		return grp, nil
	}
	return schedule.Group{}, schedule.ErrGroupNotFound
}

func (repo *ScheduleRepository) QueryGroups(_ context.Context, ids ...string) ([]schedule.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	groups := make([]schedule.Group, 0, len(ids))
	for _, id := range ids {
		if grp, ok := repo.db.groups[id]; ok {
			groups = append(groups, grp)
		}
	}
	return groups, nil
}

func (repo *ScheduleRepository) GetLesson(_ context.Context, id string) (schedule.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if lsn, ok := repo.db.lessons[id]; ok {
		return lsn, nil
	}
	return schedule.Lesson{}, schedule.ErrLessonNotFound
}

func lessonMatches(lsn schedule.Lesson, f schedule.LessonFilter) bool {
	day := core.DateOf(lsn.Date)
	switch {
	case f.GroupID != "" && lsn.GroupID != f.GroupID:
		return false
	case f.RoomID != "" && lsn.RoomID != f.RoomID:
		return false
	case !f.Date.IsZero() && !day.Equal(core.DateOf(f.Date)):
		return false
	case !f.From.IsZero() && day.Before(core.DateOf(f.From)):
		return false
	case !f.To.IsZero() && day.After(core.DateOf(f.To)):
		return false
	}
	return true
}

func (repo *ScheduleRepository) QueryLessons(_ context.Context, filter schedule.LessonFilter) ([]schedule.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]schedule.Lesson, 0)
	for _, lsn := range repo.db.lessons {
		if lessonMatches(lsn, filter) {
			lessons = append(lessons, lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if !lessons[i].Date.Equal(lessons[j].Date) {
			return lessons[i].Date.Before(lessons[j].Date)
		}
		return lessons[i].ID < lessons[j].ID
	})
	return lessons, nil
}

func (repo *ScheduleRepository) CreateLessons(_ context.Context, lessons ...schedule.Lesson) ([]schedule.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]schedule.Lesson, 0, len(lessons))
	for _, lsn := range lessons {
		lsn.ID = newID(lsn.ID)
		lsn.Date = core.DateOf(lsn.Date)
		repo.db.lessons[lsn.ID] = lsn
		created = append(created, lsn)
	}
	return created, nil
}

func (repo *ScheduleRepository) UpdateLesson(_ context.Context, lsn schedule.Lesson) (schedule.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.lessons[lsn.ID]; !ok {
		return schedule.Lesson{}, schedule.ErrLessonNotFound
	}
	lsn.Date = core.DateOf(lsn.Date)
	repo.db.lessons[lsn.ID] = lsn
	return lsn, nil
}

func (repo *ScheduleRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.lessons[id]; !ok {
		return schedule.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}
