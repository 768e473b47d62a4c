package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	// EmailMessage is a plain-text notification.
	// Body is used as is when Template is nil.
	EmailMessage struct {
		To       []mail.Address
		Subject  string
		Category string            // groups messages of the same kind with the provider, e.g. "substitution"
		Refs     map[string]string // ids the message is about, forwarded as metadata

		Template *texttmpl.Template
		Data     interface{}
		Body     string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.Template == nil {
		return nil
	}
	var buff bytes.Buffer
	if err := m.Template.Execute(&buff, m.Data); err != nil {
		return errors.Wrapf(err, "executing %q template", m.Template.Name())
	}
	m.Body = buff.String()
	return nil
}

// Sendable reports whether the rendered message has someone to go to and something to say.
func (m *EmailMessage) Sendable() bool {
	return len(m.To) > 0 && m.Body != ""
}
