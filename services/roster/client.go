// Package rostersvc reads group rosters and user profiles from the school's roster service.
package rostersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/roster"
)

// ActorHeader carries the user on whose behalf a read is made.
// The roster service enforces its own visibility rules from it.
const ActorHeader = "X-Acting-User"

type Client struct {
	baseURL string
	apiKey  string
	client  *rest.Client
}

var _ roster.Reader = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: conf.Roster.BaseURL,
		apiKey:  conf.Roster.APIKey,
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: conf.Roster.Timeout}},
	}
}

func (c *Client) ListGroupStudents(ctx context.Context, groupID string) ([]roster.Student, error) {
	var students []roster.Student
	if err := c.get(ctx, "/groups/"+url.PathEscape(groupID)+"/students", &students); err != nil {
		return nil, err
	}
	if students == nil {
		students = make([]roster.Student, 0)
	}
	return students, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (roster.Profile, error) {
	var p roster.Profile
	if err := c.get(ctx, "/users/"+url.PathEscape(userID), &p); err != nil {
		return roster.Profile{}, err
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req := rest.Request{
		Method:  rest.Get,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": "Bearer " + c.apiKey,
		},
	}
	if actor := roster.ActorFrom(ctx); actor != "" {
		req.Headers[ActorHeader] = actor
	}

	res, err := c.client.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "calling roster service")
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return roster.ErrForbidden
	case http.StatusNotFound:
		return roster.ErrNotFound
	default:
		return errors.Errorf("roster service: unexpected status %d: %s", res.StatusCode, res.Body)
	}
	return errors.Wrap(json.Unmarshal([]byte(res.Body), dest), "decoding roster response")
}
