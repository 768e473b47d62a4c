package rostersvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.Roster.BaseURL = srv.URL
	conf.Roster.APIKey = "k3y"
	conf.Roster.Timeout = time.Second
	return NewClient(conf)
}

func TestClient_ListGroupStudents(t *testing.T) {
	var gotPath, gotAuth, gotActor string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotActor = r.Header.Get(ActorHeader)
		_, _ = w.Write([]byte(`[{"id":"s1","name":"Amani"},{"id":"s2","name":"Baraka"}]`))
	})

	ctx := roster.WithActor(context.Background(), "t1")
	students, err := c.ListGroupStudents(ctx, "g1")

	if assert.NoError(t, err) {
		assert.Equal(t, []roster.Student{{ID: "s1", Name: "Amani"}, {ID: "s2", Name: "Baraka"}}, students)
	}
	assert.Equal(t, "/groups/g1/students", gotPath)
	assert.Equal(t, "Bearer k3y", gotAuth)
	assert.Equal(t, "t1", gotActor)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: roster.ErrForbidden},
		{name: "forbidden", status: http.StatusForbidden, wantErr: roster.ErrForbidden},
		{name: "not found", status: http.StatusNotFound, wantErr: roster.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			_, err := c.GetProfile(context.Background(), "u1")
			assert.Equal(t, tc.wantErr, err)
		})
	}

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.GetProfile(context.Background(), "u1")
		assert.Error(t, err)
		assert.False(t, core.IsPermissionDenied(err))
	})
}

func TestClient_ForbiddenRosterIsHidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	students, visible, err := roster.VisibleStudents(context.Background(), c, "g1")
	assert.NoError(t, err)
	assert.False(t, visible)
	assert.Empty(t, students)
}
