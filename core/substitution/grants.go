package substitution

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/schedule"
)

// Grants is a snapshot of what one teacher may do with a set of lessons.
// While a substitution is Assigned, the lesson belongs to the substitute:
// the regular teacher keeps reading it but can no longer write it.
type Grants struct {
	teacherID string
	read      map[string]bool
	write     map[string]bool
}

func (g Grants) CanEdit(teacherID, lessonID string) bool {
	return teacherID == g.teacherID && g.write[lessonID]
}

func (g Grants) CanRead(teacherID, lessonID string) bool {
	return teacherID == g.teacherID && g.read[lessonID]
}

// Grants computes the rights of teacherID over lessons.
func (c *Coordinator) Grants(ctx context.Context, teacherID string, lessons []schedule.Lesson) (Grants, error) {
	g := Grants{
		teacherID: teacherID,
		read:      make(map[string]bool, len(lessons)),
		write:     make(map[string]bool, len(lessons)),
	}
	if len(lessons) == 0 {
		return g, nil
	}

	ids := make([]string, 0, len(lessons))
	for _, lsn := range lessons {
		ids = append(ids, lsn.ID)
	}
	subs, err := c.repo.QuerySubstitutions(ctx, QueryFilter{LessonIDs: ids})
	if err != nil {
		return Grants{}, errors.Wrap(err, "querying lesson substitutions")
	}
	substitutes := make(map[string]string, len(subs))
	for _, sub := range subs {
		if sub.Status() == StatusAssigned {
			substitutes[sub.LessonID] = sub.SubstituteID
		}
	}

	teachers := make(map[string]string)
	for _, lsn := range lessons {
		teacher, ok := teachers[lsn.GroupID]
		if !ok {
			grp, err := c.lessons.GetGroup(ctx, lsn.GroupID)
			if err != nil && errors.Cause(err) != schedule.ErrGroupNotFound {
				return Grants{}, errors.Wrap(err, "getting lesson group")
			}
			teacher = grp.TeacherID
			teachers[lsn.GroupID] = teacher
		}

		substitute, covered := substitutes[lsn.ID]
		switch {
		case covered && substitute == teacherID:
			g.read[lsn.ID] = true
			g.write[lsn.ID] = true
		case teacher != "" && teacher == teacherID:
			g.read[lsn.ID] = true
			g.write[lsn.ID] = !covered
		}
	}
	return g, nil
}

// CanEdit tells whether teacherID may currently write the attendance of lessonID.
func (c *Coordinator) CanEdit(ctx context.Context, teacherID, lessonID string) (bool, error) {
	lsn, err := c.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		if errors.Cause(err) == schedule.ErrLessonNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting lesson")
	}
	g, err := c.Grants(ctx, teacherID, []schedule.Lesson{lsn})
	if err != nil {
		return false, err
	}
	return g.CanEdit(teacherID, lessonID), nil
}
