// Package config holds the tunables shared by log streams and emitters.
// Callers pass Options to the constructors in the root package; Build folds
// them into a Config with defaults filled in
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/courier/message"
)

type (
	// Config conveys the properties of streams and emitters that one can
	// configure using Options
	Config struct {
		Capacity       int
		DefaultTimeout time.Duration
		IOTimeout      time.Duration
		Retention      Retention
		Codec          message.Codec
		Logger         *slog.Logger
		Registerer     prometheus.Registerer
		Tracer         trace.Tracer
		RefetchInitial time.Duration
		RefetchMax     time.Duration
	}

	// Option applies an option to a configuration instance
	Option func(*Config) error

	// Retention decides what happens to a topic's durable entries when the
	// stream reading it is closed
	Retention int
)

// Retention policies
const (
	unsetRetention Retention = iota
	DeleteOnClose
	RetainOnClose
)

// Defaults
const (
	DefaultCapacity       = 16
	DefaultTimeout        = 10 * time.Second
	DefaultIOTimeout      = 5 * time.Second
	DefaultRefetchInitial = 50 * time.Millisecond
	DefaultRefetchMax     = time.Second
)

// Error messages
var (
	ErrRetentionAlreadySet = errors.New("retention policy already set")
	ErrCodecAlreadySet     = errors.New("codec already set")
	ErrInvalidCapacity     = errors.New("capacity must be positive")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
)

var (
	// Ephemeral deletes a topic's entries when its stream is closed
	Ephemeral = retention(DeleteOnClose)

	// Durable keeps a topic's entries when its stream is closed
	Durable = retention(RetainOnClose)
)

// Build applies the provided Options and then fills in every property that
// remains unset
func Build(o ...Option) (*Config, error) {
	cfg := &Config{}
	if err := cfg.Apply(append(o, Defaults)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply applies each Option in order, stopping at the first error
func (c *Config) Apply(o ...Option) error {
	for _, fn := range o {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Defaults applies the default configuration values
func Defaults(c *Config) error {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	if c.Retention == unsetRetention {
		c.Retention = DeleteOnClose
	}
	if c.Codec == nil {
		c.Codec = message.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RefetchInitial == 0 {
		c.RefetchInitial = DefaultRefetchInitial
	}
	if c.RefetchMax == 0 {
		c.RefetchMax = max(DefaultRefetchMax, c.RefetchInitial)
	}
	return nil
}

// Capacity sets the number of decoded values a stream buffers
func Capacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacity, n)
		}
		c.Capacity = n
		return nil
	}
}

// Timeout sets how long Once waits when the caller gives no timeout
func Timeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
		}
		c.DefaultTimeout = d
		return nil
	}
}

// IOTimeout bounds each call made to the durable log
func IOTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
		}
		c.IOTimeout = d
		return nil
	}
}

// Codec sets the encoding of argument lists in the durable log
func Codec(codec message.Codec) Option {
	return func(c *Config) error {
		if c.Codec != nil {
			return ErrCodecAlreadySet
		}
		c.Codec = codec
		return nil
	}
}

// Logger sets the structured logger
func Logger(l *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// Metrics registers courier's collectors with the provided Registerer
func Metrics(reg prometheus.Registerer) Option {
	return func(c *Config) error {
		c.Registerer = reg
		return nil
	}
}

// Tracer sets the tracer used for Emit and Once spans
func Tracer(t trace.Tracer) Option {
	return func(c *Config) error {
		c.Tracer = t
		return nil
	}
}

// Refetch sets the bounds of the exponential backoff used while a Once
// call polls the durable log for entries appended by other processes
func Refetch(initial, maximum time.Duration) Option {
	return func(c *Config) error {
		if initial <= 0 || maximum < initial {
			return fmt.Errorf("%w: %s..%s", ErrInvalidTimeout, initial, maximum)
		}
		c.RefetchInitial = initial
		c.RefetchMax = maximum
		return nil
	}
}

func retention(r Retention) Option {
	return func(c *Config) error {
		if c.Retention != unsetRetention {
			return ErrRetentionAlreadySet
		}
		c.Retention = r
		return nil
	}
}
