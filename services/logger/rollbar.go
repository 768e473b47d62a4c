package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

// Fields are reported as item extras, e.g. Fields{"lesson_id": lsn.ID}.
type Fields map[string]interface{}

// RollbarLogger reports to Rollbar and mirrors every line to a standard logger.
//
// Besides the message, it understands these args:
//	error       the item is reported as that error, with its stack
//	user.User   the item's person
//	Fields      merged into the item's extras
// Anything else is printed and attached under "args".
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, client: client}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.client.SetEnabled(enabled)
}

// Close flushes pending items.
func (l *RollbarLogger) Close() error {
	return l.client.Close()
}

type item struct {
	ctx    context.Context
	err    error
	extras map[string]interface{}
}

func (l *RollbarLogger) prepare(args []interface{}) item {
	it := item{ctx: context.Background(), extras: make(map[string]interface{})}
	var rest []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if _, set := rollbar.PersonFromContext(it.ctx); !set { // one person per item
				it.ctx = rollbar.NewPersonContext(it.ctx, &rollbar.Person{Id: v.ID, Username: v.Username, Email: v.Email})
			}
		case Fields:
			for k, val := range v {
				it.extras[k] = val
			}
		case error:
			if it.err == nil {
				it.err = v
			} else {
				rest = append(rest, v.Error())
			}
		default:
			rest = append(rest, v)
		}
	}
	if len(rest) > 0 {
		it.extras["args"] = rest
	}
	return it
}

func (l *RollbarLogger) report(level, msg string, args []interface{}) {
	it := l.prepare(args)
	if it.err != nil {
		it.extras["message"] = msg
		l.client.ErrorWithExtrasAndContext(it.ctx, level, it.err, it.extras)
	} else {
		l.client.MessageWithExtrasAndContext(it.ctx, level, msg, it.extras)
	}
	l.std.Print(format(strings.ToUpper(level), msg, args))
}

// format renders one line; users are left out.
func format(level, msg string, args []interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", level, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
		case Fields:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%v", k, v[k])
			}
		case error:
			fmt.Fprintf(&b, "\n%+v", v)
		default:
			fmt.Fprintf(&b, " %+v", v)
		}
	}
	return b.String()
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.report(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.report(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	_ = l.client.Close()
	l.std.Fatal(msg)
}
