package emailsvc

import (
	"fmt"
	"log"
	"net/mail"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// consoleService writes notifications to a logger instead of delivering them.
type consoleService struct {
	from   mail.Address
	prefix string
	quiet  bool
	out    *log.Logger
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{from: conf.DefaultFromEmail, prefix: subjectPrefix(conf), out: log.Default()}
}

func subjectPrefix(conf *core.Config) string {
	return "[" + conf.AppName + "] "
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if _, err := svc.deliver(msg); err != nil {
				svc.out.Printf("%+v", err)
			}
		}(msg)
	}
}

// deliver reports whether msg was written out.
func (svc consoleService) deliver(msg *core.EmailMessage) (bool, error) {
	if err := msg.Render(); err != nil {
		return false, errors.Wrap(err, "rendering email")
	}
	if !msg.Sendable() {
		return false, nil
	}
	if !svc.quiet {
		svc.out.Println(svc.format(*msg))
	}
	return true, nil
}

func (svc consoleService) format(msg core.EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", svc.from.String())
	fmt.Fprintf(&b, "Date: %s\r\n", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	fmt.Fprintf(&b, "Subject: %s%s\r\n", svc.prefix, msg.Subject)
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.String())
	}
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	if msg.Category != "" {
		fmt.Fprintf(&b, "X-Category: %s\r\n", msg.Category)
	}
	refs := make([]string, 0, len(msg.Refs))
	for k, v := range msg.Refs {
		refs = append(refs, k+"="+v)
	}
	if len(refs) > 0 {
		sort.Strings(refs)
		fmt.Fprintf(&b, "X-Refs: %s\r\n", strings.Join(refs, "; "))
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// ConsoleServiceMock delivers synchronously and keeps a copy of every delivered message.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
}

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{from: conf.DefaultFromEmail, prefix: subjectPrefix(conf), quiet: true, out: log.Default()},
	}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		ok, err := svc.deliver(msg)
		if err != nil {
			svc.out.Printf("%+v", err)
		}
		if ok {
			svc.mu.Lock()
			svc.sent = append(svc.sent, *msg)
			svc.mu.Unlock()
		}
	}
}

func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
