package emailsvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	logsvc "github.com/trezcool/ratiba/services/logger"
)

func newTestSendgrid(t *testing.T, handler http.HandlerFunc) *sendgridService {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &core.Config{AppName: "Ratiba", SendgridApiKey: "sg-key", DefaultFromEmail: mail.Address{Name: "Ratiba", Address: "noreply@test.cd"}}
	svc := NewSendgridService(conf, logsvc.NewMemoryLogger()).(*sendgridService)
	svc.host = srv.URL
	return svc
}

func TestSendgridService_send(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		body    struct {
			Subject          string            `json:"subject"`
			Categories       []string          `json:"categories"`
			CustomArgs       map[string]string `json:"custom_args"`
			Personalizations []struct {
				Subject string `json:"subject"`
				To      []struct {
					Email string `json:"email"`
				} `json:"to"`
			} `json:"personalizations"`
			Content []struct {
				Value string `json:"value"`
			} `json:"content"`
		}
	)
	svc := newTestSendgrid(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
		raw, _ := ioutil.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	})

	err := svc.send(context.Background(), &core.EmailMessage{
		To:       []mail.Address{{Name: "Juma", Address: "juma@test.cd"}},
		Subject:  "Your lesson is covered",
		Category: "substitution",
		Refs:     map[string]string{"lesson_id": "l1"},
		Body:     "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", gotAuth)
	assert.Equal(t, sendgridEndpoint, gotPath)
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Ratiba] Your lesson is covered", body.Personalizations[0].Subject)
	assert.Equal(t, "juma@test.cd", body.Personalizations[0].To[0].Email)
	assert.Equal(t, []string{"substitution"}, body.Categories)
	assert.Equal(t, map[string]string{"lesson_id": "l1"}, body.CustomArgs)
	assert.Equal(t, "hello", body.Content[0].Value)
}

func TestSendgridService_sendErrors(t *testing.T) {
	calls := 0
	svc := newTestSendgrid(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	})

	err := svc.send(context.Background(), &core.EmailMessage{To: []mail.Address{{Address: "juma@test.cd"}}, Body: "hello"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "sendgrid status 401")
	}

	// nothing to send: no request
	assert.NoError(t, svc.send(context.Background(), &core.EmailMessage{Body: "hello"}))
	assert.Equal(t, 1, calls)
}
