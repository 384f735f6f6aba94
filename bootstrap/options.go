package bootstrap

import (
	"time"

	"github.com/kbukum/microcosm/logger"
)

// DefaultGracefulTimeout bounds shutdown: stop hooks, then deregistration
// and the server drain.
const DefaultGracefulTimeout = 15 * time.Second

// Option configures the App during creation.
type Option func(*settings)

type settings struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{gracefulTimeout: DefaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger replaces the logger otherwise built from the config's
// logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithGracefulTimeout sets how long shutdown may take. Non-positive values
// keep the default.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.gracefulTimeout = d
		}
	}
}
