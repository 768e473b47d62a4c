package substitution

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
	"github.com/trezcool/ratiba/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("substitution not found")
	ErrDuplicate        = errors.New("a substitution was already reported for this lesson")
	ErrAlreadyClaimed   = errors.New("this substitution is already covered by another teacher")
	ErrNotClaimed       = errors.New("this substitution has no substitute")
	ErrLessonPast       = errors.New("substitutes can only be requested for today or later")
	ErrNotGroupTeacher  = core.NewPermissionError("only the group's teacher can report a substitution")
	ErrSelfSubstitution = core.NewPermissionError("the reporting teacher cannot substitute themselves")
	ErrNotPermitted     = core.NewPermissionError("not allowed to change this substitution")

	// ErrChanged is returned by a Repository when a conditional write finds another state.
	ErrChanged = errors.New("substitution changed concurrently")
)

// Coordinator moves lessons between their regular teacher and a substitute.
type Coordinator struct {
	repo    Repository
	lessons LessonSource
	roster  roster.Reader
	mailer  core.EmailService
	logger  core.Logger
}

func NewCoordinator(repo Repository, lessons LessonSource, rosterReader roster.Reader, mailer core.EmailService, logger core.Logger) *Coordinator {
	return &Coordinator{repo: repo, lessons: lessons, roster: rosterReader, mailer: mailer, logger: logger}
}

func (c *Coordinator) Get(ctx context.Context, id string) (Substitution, error) {
	return c.repo.GetSubstitution(ctx, id)
}

// ReportSubstituteNeeded opens a substitution for a lesson of today or later,
// on behalf of the lesson's group teacher. A lesson holds at most one substitution.
func (c *Coordinator) ReportSubstituteNeeded(ctx context.Context, ns NewSubstitution, actor user.User) (Substitution, error) {
	lsn, err := c.lessons.GetLesson(ctx, ns.LessonID)
	if err != nil {
		return Substitution{}, err
	}
	if core.DateOf(lsn.Date).Before(core.Today()) {
		return Substitution{}, core.NewValidationError(ErrLessonPast, core.FieldError{Field: "lesson_id", Error: ErrLessonPast.Error()})
	}
	grp, err := c.lessons.GetGroup(ctx, lsn.GroupID)
	if err != nil {
		return Substitution{}, errors.Wrap(err, "getting lesson group")
	}
	if grp.TeacherID != actor.ID {
		return Substitution{}, ErrNotGroupTeacher
	}

	existing, err := c.repo.QuerySubstitutions(ctx, QueryFilter{LessonIDs: []string{lsn.ID}})
	if err != nil {
		return Substitution{}, errors.Wrap(err, "querying lesson substitutions")
	}
	if len(existing) > 0 {
		return Substitution{}, core.NewConflictError(ErrDuplicate, existing[0])
	}

	now := core.NowFunc().UTC()
	sub, err := c.repo.CreateSubstitution(ctx, Substitution{
		LessonID:   lsn.ID,
		ReportedBy: actor.ID,
		Reason:     core.CleanString(ns.Reason),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicate { // lost a race with another report
			return Substitution{}, core.NewConflictError(ErrDuplicate, nil)
		}
		return Substitution{}, errors.Wrap(err, "creating substitution")
	}
	return sub, nil
}

// Claim makes actor the substitute. Only teachers may claim.
func (c *Coordinator) Claim(ctx context.Context, id string, actor user.User) (Substitution, error) {
	if !actor.IsTeacher() {
		return Substitution{}, ErrNotPermitted
	}
	return c.assign(ctx, id, actor.ID)
}

// Assign lets an administrator pick the substitute.
func (c *Coordinator) Assign(ctx context.Context, id, teacherID string, actor user.User) (Substitution, error) {
	if !actor.IsAdmin() {
		return Substitution{}, ErrNotPermitted
	}
	return c.assign(ctx, id, teacherID)
}

func (c *Coordinator) assign(ctx context.Context, id, teacherID string) (Substitution, error) {
	sub, err := c.repo.GetSubstitution(ctx, id)
	if err != nil {
		return Substitution{}, err
	}
	if teacherID == sub.ReportedBy {
		return Substitution{}, ErrSelfSubstitution
	}
	switch {
	case sub.SubstituteID == teacherID:
		return sub, nil
	case sub.Status() == StatusAssigned:
		return Substitution{}, core.NewConflictError(ErrAlreadyClaimed, sub)
	}

	sub, err = c.repo.SetSubstitute(ctx, sub.ID, "", teacherID, core.NowFunc().UTC())
	if err != nil {
		if errors.Cause(err) != ErrChanged {
			return Substitution{}, errors.Wrap(err, "setting substitute")
		}
		// claimed in the meantime
		cur, err := c.repo.GetSubstitution(ctx, id)
		if err != nil {
			return Substitution{}, err
		}
		if cur.SubstituteID == teacherID {
			return cur, nil
		}
		return Substitution{}, core.NewConflictError(ErrAlreadyClaimed, cur)
	}
	c.notify(ctx, sub, coveredNotice, teacherID)
	return sub, nil
}

// Release puts an assigned substitution back to Open.
// Only the substitute or an administrator may release it.
func (c *Coordinator) Release(ctx context.Context, id string, actor user.User) (Substitution, error) {
	sub, err := c.repo.GetSubstitution(ctx, id)
	if err != nil {
		return Substitution{}, err
	}
	if sub.Status() != StatusAssigned {
		return Substitution{}, core.NewConflictError(ErrNotClaimed, sub)
	}
	if sub.SubstituteID != actor.ID && !actor.IsAdmin() {
		return Substitution{}, ErrNotPermitted
	}

	previous := sub.SubstituteID
	sub, err = c.repo.SetSubstitute(ctx, sub.ID, previous, "", core.NowFunc().UTC())
	if err != nil {
		if errors.Cause(err) != ErrChanged {
			return Substitution{}, errors.Wrap(err, "clearing substitute")
		}
		cur, err := c.repo.GetSubstitution(ctx, id)
		if err != nil {
			return Substitution{}, err
		}
		return Substitution{}, core.NewConflictError(ErrNotClaimed, cur)
	}
	c.notify(ctx, sub, withdrawnNotice, previous)
	return sub, nil
}

// Cancel deletes a substitution: the reporter may while it is Open, an administrator always.
func (c *Coordinator) Cancel(ctx context.Context, id string, actor user.User) error {
	sub, err := c.repo.GetSubstitution(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		if sub.ReportedBy != actor.ID {
			return ErrNotPermitted
		}
		if sub.Status() != StatusOpen {
			return core.NewConflictError(ErrAlreadyClaimed, sub)
		}
	}
	err = c.repo.DeleteSubstitution(ctx, sub.ID, !actor.IsAdmin())
	if errors.Cause(err) == ErrChanged { // claimed after the check
		cur, err := c.repo.GetSubstitution(ctx, id)
		if err != nil {
			return err
		}
		return core.NewConflictError(ErrAlreadyClaimed, cur)
	}
	return err
}

func (c *Coordinator) ListReportedBy(ctx context.Context, teacherID string) ([]Substitution, error) {
	return c.repo.QuerySubstitutions(ctx, QueryFilter{ReportedBy: teacherID})
}

func (c *Coordinator) ListCovering(ctx context.Context, teacherID string) ([]Substitution, error) {
	return c.repo.QuerySubstitutions(ctx, QueryFilter{SubstituteID: teacherID})
}

func (c *Coordinator) ListUnclaimed(ctx context.Context) ([]Substitution, error) {
	return c.repo.QuerySubstitutions(ctx, QueryFilter{Unclaimed: true})
}

// notify emails the reporting teacher. Failures are logged only.
func (c *Coordinator) notify(ctx context.Context, sub Substitution, n notice, teacherID string) {
	if c.mailer == nil || c.roster == nil {
		return
	}
	reporter, err := c.roster.GetProfile(ctx, sub.ReportedBy)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("notifying reporter of substitution %s: %v", sub.ID, err), err)
		return
	}
	name := teacherID
	if sbt, err := c.roster.GetProfile(ctx, teacherID); err == nil && sbt.Name != "" {
		name = sbt.Name
	}
	c.mailer.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: reporter.Name, Address: reporter.Email}},
		Subject:  n.subject,
		Category: noticeCategory,
		Refs:     map[string]string{"substitution_id": sub.ID, "lesson_id": sub.LessonID},
		Template: n.tmpl,
		Data:     noticeData{Reporter: reporter.Name, Substitute: name, LessonID: sub.LessonID},
	})
}
