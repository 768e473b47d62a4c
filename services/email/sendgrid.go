package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/ratiba/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
	sendTimeout      = 30 * time.Second
)

type sendgridService struct {
	key    string
	host   string
	from   *sgmail.Email
	prefix string
	logger core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		key:    conf.SendgridApiKey,
		host:   sendgridHost,
		from:   sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		prefix: subjectPrefix(conf),
		logger: logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := svc.send(ctx, msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending %q email: %v", msg.Subject, err), err)
			}
		}(msg)
	}
}

func (svc sendgridService) send(ctx context.Context, msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return err
	}
	if !msg.Sendable() {
		return nil
	}

	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.build(*msg))

	// rate limited requests are retried until ctx expires
	res, err := sendgrid.MakeRequestRetryWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "calling sendgrid")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (svc sendgridService) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.prefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	keys := make([]string, 0, len(msg.Refs))
	for k := range msg.Refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.SetCustomArg(k, msg.Refs[k])
	}
	return m
}
