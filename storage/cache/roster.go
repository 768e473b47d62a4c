// Package rediscache keeps short-lived copies of roster reads in redis.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
	logsvc "github.com/trezcool/ratiba/services/logger"
)

const (
	groupStudentsPrefix = "roster:group:" // roster:group:{id}:as:{actor} -> JSON student list
	profilePrefix       = "roster:user:"  // roster:user:{id} -> JSON profile
)

// Visibility depends on who reads, so group rosters are cached per actor.
func groupStudentsKey(groupID, actor string) string {
	return groupStudentsPrefix + groupID + ":as:" + actor
}

func profileKey(userID string) string {
	return profilePrefix + userID
}

// RosterCache decorates a roster.Reader. Errors, forbidden reads included, are never cached.
// Redis failures degrade to direct reads.
type RosterCache struct {
	next   roster.Reader
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ roster.Reader = (*RosterCache)(nil) // interface compliance check

func NewRosterCache(next roster.Reader, client *redis.Client, ttl time.Duration, logger core.Logger) *RosterCache {
	return &RosterCache{next: next, client: client, ttl: ttl, logger: logger}
}

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func (c *RosterCache) ListGroupStudents(ctx context.Context, groupID string) ([]roster.Student, error) {
	key := groupStudentsKey(groupID, roster.ActorFrom(ctx))
	var students []roster.Student
	if c.load(ctx, key, &students) {
		return students, nil
	}

	students, err := c.next.ListGroupStudents(ctx, groupID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, students)
	return students, nil
}

func (c *RosterCache) GetProfile(ctx context.Context, userID string) (roster.Profile, error) {
	key := profileKey(userID)
	var p roster.Profile
	if c.load(ctx, key, &p) {
		return p, nil
	}

	p, err := c.next.GetProfile(ctx, userID)
	if err != nil {
		return roster.Profile{}, err
	}
	c.store(ctx, key, p)
	return p, nil
}

func (c *RosterCache) load(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("reading roster cache: "+err.Error(), err, logsvc.Fields{"key": key})
		}
		return false
	}
	if err = json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("decoding roster cache: "+err.Error(), err, logsvc.Fields{"key": key})
		return false
	}
	return true
}

func (c *RosterCache) store(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("encoding roster cache: "+err.Error(), err, logsvc.Fields{"key": key})
		return
	}
	if err = c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("writing roster cache: "+err.Error(), err, logsvc.Fields{"key": key})
	}
}

// Invalidate drops every cached roster of a group.
func (c *RosterCache) Invalidate(ctx context.Context, groupID string) error {
	if c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, groupStudentsPrefix+groupID+":as:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning roster cache")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "invalidating roster cache")
}
