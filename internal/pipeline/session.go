package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/linuxmatters/syntunes/internal/logging"
)

// Session owns the per-render scratch state: an ID for log correlation, a
// temporary directory for extracted assets and the warnings raised while
// running in degraded mode.
type Session struct {
	ID  string
	Dir string

	logger *slog.Logger

	mu       sync.Mutex
	warnings []string
}

// NewSession creates the session temp directory.
func NewSession(logger *slog.Logger) (*Session, error) {
	id := uuid.NewString()
	dir, err := os.MkdirTemp("", "syntunes-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Session{
		ID:     id,
		Dir:    dir,
		logger: logging.OrNop(logger).With("session", id),
	}, nil
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Warn records a degraded-mode warning and logs it.
func (s *Session) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)

	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf("%s %s", msg, formatArgs(args))
	}
	s.mu.Lock()
	s.warnings = append(s.warnings, text)
	s.mu.Unlock()
}

// Warnings returns a copy of the recorded warnings.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// Close removes the session directory.
func (s *Session) Close() error {
	if s.Dir == "" {
		return nil
	}
	err := os.RemoveAll(s.Dir)
	s.Dir = ""
	return err
}

// formatArgs renders slog-style key/value pairs as "(k=v, k=v)".
func formatArgs(args []any) string {
	out := "("
	for i := 0; i < len(args); i += 2 {
		if i > 0 {
			out += ", "
		}
		if i+1 < len(args) {
			out += fmt.Sprintf("%v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprint(args[i])
		}
	}
	return out + ")"
}
