package api

import (
	"time"

	"github.com/okian/teampulse/pkg/logger"
)

const (
	defaultMaxLimit     = 100
	defaultLimit        = 10
	defaultPingInterval = 30 * time.Second
)

type options struct {
	log          logger.Logger
	maxLimit     int
	defaultLimit int
	pingInterval time.Duration
}

// Option configures the Server.
type Option func(*options)

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxLimit caps the leaderboard limit parameter.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// WithPingInterval sets how often stream connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		maxLimit:     defaultMaxLimit,
		defaultLimit: defaultLimit,
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.defaultLimit > o.maxLimit {
		o.defaultLimit = o.maxLimit
	}
	return o
}
