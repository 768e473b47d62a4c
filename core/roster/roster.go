// Package roster describes the read side of the external roster service:
// group memberships and people profiles.
package roster

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

var (
	// ErrForbidden is returned when the caller may not read a roster resource.
	// Readers treat it as "not visible", never as a failure.
	ErrForbidden = core.NewPermissionError("roster access forbidden")
	ErrNotFound  = core.NewNotFoundError("roster resource not found")
)

type (
	Student struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Profile struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Reader interface {
		ListGroupStudents(ctx context.Context, groupID string) ([]Student, error)
		GetProfile(ctx context.Context, userID string) (Profile, error)
	}
)

// VisibleStudents lists a group's students, treating a forbidden read as an empty roster.
// The second return value reports whether the roster was visible at all.
func VisibleStudents(ctx context.Context, r Reader, groupID string) ([]Student, bool, error) {
	students, err := r.ListGroupStudents(ctx, groupID)
	if err != nil {
		if errors.Cause(err) == ErrForbidden {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "listing group students")
	}
	return students, true, nil
}

type actorKey struct{}

// WithActor tags ctx with the user on whose behalf roster reads are made.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFrom(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
