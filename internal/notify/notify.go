// Package notify surfaces session messages to the user.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/internal/session"
)

// Log writes notifications to the context logger.
type Log struct{}

var _ session.Notifier = Log{}

func (Log) Notify(ctx context.Context, level session.Level, message string) {
	slogctx.Log(ctx, levelOf(level), message, "notification", true)
}

// Console prints notifications for an interactive user. Combine it with Log
// in a Multi to keep them in the log too.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Notify(_ context.Context, level session.Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "%s: %s\n", title(level), message)
}

func title(level session.Level) string {
	switch level {
	case session.LevelError:
		return "Error"
	case session.LevelWarning:
		return "Warning"
	default:
		return "Info"
	}
}

// Multi fans a notification out to several notifiers.
type Multi []session.Notifier

func (m Multi) Notify(ctx context.Context, level session.Level, message string) {
	for _, n := range m {
		n.Notify(ctx, level, message)
	}
}

// levelOf maps a notification level to a log level.
func levelOf(level session.Level) slog.Level {
	switch level {
	case session.LevelError:
		return slog.LevelError
	case session.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
