package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ratiba/core/roster"
	logsvc "github.com/trezcool/ratiba/services/logger"
)

type countingReader struct {
	calls   int
	denyAll bool
}

func (r *countingReader) ListGroupStudents(_ context.Context, groupID string) ([]roster.Student, error) {
	r.calls++
	if r.denyAll {
		return nil, roster.ErrForbidden
	}
	return []roster.Student{{ID: "s1", Name: "Amani"}}, nil
}

func (r *countingReader) GetProfile(_ context.Context, userID string) (roster.Profile, error) {
	r.calls++
	return roster.Profile{ID: userID, Name: "Neema", Email: "neema@school.test"}, nil
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "roster:group:g1:as:t1", groupStudentsKey("g1", "t1"))
	assert.NotEqual(t, groupStudentsKey("g1", "t1"), groupStudentsKey("g1", "t2"))
	assert.Equal(t, "roster:user:u1", profileKey("u1"))
}

func TestRosterCache_WithoutClientPassesThrough(t *testing.T) {
	next := &countingReader{}
	c := NewRosterCache(next, nil, time.Minute, logsvc.NewMemoryLogger())

	for i := 0; i < 2; i++ {
		students, err := c.ListGroupStudents(context.Background(), "g1")
		assert.NoError(t, err)
		assert.Len(t, students, 1)
	}
	assert.Equal(t, 2, next.calls)
	assert.NoError(t, c.Invalidate(context.Background(), "g1"))
}

func TestRosterCache_ForbiddenIsReturnedUncached(t *testing.T) {
	next := &countingReader{denyAll: true}
	c := NewRosterCache(next, nil, time.Minute, logsvc.NewMemoryLogger())

	students, visible, err := roster.VisibleStudents(context.Background(), c, "g1")
	assert.NoError(t, err)
	assert.False(t, visible)
	assert.Nil(t, students)
}

func TestRosterCache_UnreachableRedisDegrades(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()

	next := &countingReader{}
	log := logsvc.NewMemoryLogger()
	c := NewRosterCache(next, client, time.Minute, log)

	p, err := c.GetProfile(context.Background(), "u1")
	if assert.NoError(t, err) {
		assert.Equal(t, "Neema", p.Name)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 2, log.Count("WARN"), "failed read and failed write are both logged")
}
