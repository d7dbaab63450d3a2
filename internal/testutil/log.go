package testutil

import (
	"bytes"
	"log/slog"
	"sync"
)

// LogBuffer collects slog output for assertions. Timestamps are dropped
// so the output is deterministic.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogger returns a Debug-level text logger writing into a new LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	lb := &LogBuffer{}
	h := slog.NewTextHandler(lb, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(h), lb
}

// Write implements io.Writer.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
