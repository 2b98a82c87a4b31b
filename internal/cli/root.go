// Package cli contains the cobra commands of the courier binary
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/courier"
	"github.com/kode4food/courier/internal/backend"
	"github.com/kode4food/courier/internal/observability"
	"github.com/kode4food/courier/internal/settings"
	"github.com/kode4food/courier/transport"
)

// app carries the state shared by every command of one invocation
type app struct {
	viper    *viper.Viper
	cfgFile  string
	settings settings.Settings
	logger   *slog.Logger
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewRoot constructs the root command and registers every subcommand
func NewRoot(version string) *cobra.Command {
	a := &app{viper: viper.New()}
	root := &cobra.Command{
		Use:           "courier",
		Short:         "Emit and receive events through durable topics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "init" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./courier.yaml or ~/.config/courier/courier.yaml)")
	flags.String("backend", "", "durable log backend: memory|redis|pebble|kafka|nats")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-format", "", "log format: text|json")
	_ = a.viper.BindPFlag("backend", flags.Lookup("backend"))
	_ = a.viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.viper.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newEmitCommand(a),
		newOnceCommand(a),
		newPurgeCommand(a),
		newInitCommand(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	s, err := settings.Load(a.viper, a.cfgFile)
	if err != nil {
		return err
	}
	a.settings = s
	a.logger = observability.NewLogger(cmd.ErrOrStderr(), "cli",
		observability.ParseLogLevel(s.Log.Level), s.Log.Format,
	)

	tracer, shutdown, err := observability.InitTracing(
		observability.GetTracingConfig("courier"), a.logger,
	)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	a.tracer = tracer
	a.shutdown = shutdown
	return nil
}

// withLog opens the configured durable log for the duration of fn
func (a *app) withLog(fn func(backend.Log) error) error {
	l, err := backend.Open(a.settings)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", a.settings.Backend, err)
	}
	defer func() {
		if err := l.Close(); err != nil {
			a.logger.Warn("closing backend", slog.Any("error", err))
		}
	}()
	return fn(l)
}

// withEmitter builds an emitter over the configured durable log. Streams
// are left open on return so their topics are never deleted by the CLI
func (a *app) withEmitter(fn func(transport.Emitter) error) error {
	return a.withLog(func(l backend.Log) error {
		o, err := backend.Options(a.settings, a.logger, nil, a.tracer)
		if err != nil {
			return err
		}
		e, err := courier.NewEmitter(l, o...)
		if err != nil {
			return err
		}
		return fn(e)
	})
}
