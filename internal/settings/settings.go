// Package settings loads the CLI's configuration from a YAML file,
// COURIER_* environment variables and command-line flags.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type (
	// Settings configures a courier process
	Settings struct {
		Backend   string         `mapstructure:"backend"`
		Codec     string         `mapstructure:"codec"`
		Source    string         `mapstructure:"source"`
		Capacity  int            `mapstructure:"capacity"`
		Timeout   time.Duration  `mapstructure:"timeout"`
		IOTimeout time.Duration  `mapstructure:"io_timeout"`
		Retain    bool           `mapstructure:"retain"`
		Log       LogSettings    `mapstructure:"log"`
		Redis     RedisSettings  `mapstructure:"redis"`
		Pebble    PebbleSettings `mapstructure:"pebble"`
		Kafka     KafkaSettings  `mapstructure:"kafka"`
		NATS      NATSSettings   `mapstructure:"nats"`
	}

	// LogSettings configures the process logger
	LogSettings struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	// RedisSettings configures the redis backend
	RedisSettings struct {
		URL    string `mapstructure:"url"`
		Prefix string `mapstructure:"prefix"`
	}

	// PebbleSettings configures the pebble backend
	PebbleSettings struct {
		Dir  string `mapstructure:"dir"`
		Sync bool   `mapstructure:"sync"`
	}

	// KafkaSettings configures the kafka backend
	KafkaSettings struct {
		Brokers   []string      `mapstructure:"brokers"`
		FetchWait time.Duration `mapstructure:"fetch_wait"`
	}

	// NATSSettings configures the nats backend
	NATSSettings struct {
		URL string `mapstructure:"url"`
	}
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendPebble = "pebble"
	BackendKafka  = "kafka"
	BackendNATS   = "nats"
)

// Codec names
const (
	CodecJSON        = "json"
	CodecCloudEvents = "cloudevents"
)

// EnvPrefix prefixes every environment variable that overrides a setting
const EnvPrefix = "COURIER"

var (
	backends = []string{
		BackendMemory, BackendRedis, BackendPebble, BackendKafka, BackendNATS,
	}
	codecs = []string{CodecJSON, CodecCloudEvents}
)

// Defaults returns the settings used when nothing else is configured
func Defaults() Settings {
	return Settings{
		Backend:   BackendPebble,
		Codec:     CodecJSON,
		Source:    "courier",
		Capacity:  16,
		Timeout:   10 * time.Second,
		IOTimeout: 5 * time.Second,
		Log:       LogSettings{Level: "info", Format: "text"},
		Redis:     RedisSettings{URL: "redis://localhost:6379/0"},
		Pebble:    PebbleSettings{Dir: ".courier/data"},
		Kafka: KafkaSettings{
			Brokers:   []string{"localhost:9092"},
			FetchWait: 250 * time.Millisecond,
		},
		NATS: NATSSettings{URL: "nats://127.0.0.1:4222"},
	}
}

// Load reads settings into v. An empty path looks for courier.yaml in the
// working directory and then in ~/.config/courier; a missing file is not
// an error
func Load(v *viper.Viper, path string) (Settings, error) {
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("courier")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "courier"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	return s, s.Validate()
}

// Validate checks the settings for errors
func (s Settings) Validate() error {
	var errs []error

	if !slices.Contains(backends, s.Backend) {
		errs = append(errs, fmt.Errorf(
			"backend %q is not valid (must be one of %s)",
			s.Backend, strings.Join(backends, ", "),
		))
	}
	if !slices.Contains(codecs, s.Codec) {
		errs = append(errs, fmt.Errorf(
			"codec %q is not valid (must be one of %s)",
			s.Codec, strings.Join(codecs, ", "),
		))
	}
	if s.Codec == CodecCloudEvents && s.Source == "" {
		errs = append(errs, errors.New("source is required for cloudevents"))
	}
	if s.Capacity <= 0 {
		errs = append(errs, errors.New("capacity must be positive"))
	}
	if s.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if s.IOTimeout <= 0 {
		errs = append(errs, errors.New("io_timeout must be positive"))
	}

	switch s.Backend {
	case BackendRedis:
		if s.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required"))
		}
	case BackendPebble:
		if s.Pebble.Dir == "" {
			errs = append(errs, errors.New("pebble.dir is required"))
		}
	case BackendKafka:
		if len(s.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers are required"))
		}
	case BackendNATS:
		if s.NATS.URL == "" {
			errs = append(errs, errors.New("nats.url is required"))
		}
	}

	return errors.Join(errs...)
}

// WriteDefault writes the default settings to path as YAML, creating
// parent directories. An existing file is left untouched
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document(Defaults())); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = enc.Close()
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// document renders settings the way a person would write them, with
// durations as strings
func document(s Settings) map[string]any {
	return map[string]any{
		"backend":    s.Backend,
		"codec":      s.Codec,
		"source":     s.Source,
		"capacity":   s.Capacity,
		"timeout":    s.Timeout.String(),
		"io_timeout": s.IOTimeout.String(),
		"retain":     s.Retain,
		"log": map[string]any{
			"level":  s.Log.Level,
			"format": s.Log.Format,
		},
		"redis": map[string]any{
			"url":    s.Redis.URL,
			"prefix": s.Redis.Prefix,
		},
		"pebble": map[string]any{
			"dir":  s.Pebble.Dir,
			"sync": s.Pebble.Sync,
		},
		"kafka": map[string]any{
			"brokers":    s.Kafka.Brokers,
			"fetch_wait": s.Kafka.FetchWait.String(),
		},
		"nats": map[string]any{
			"url": s.NATS.URL,
		},
	}
}

func setDefaults(v *viper.Viper, s Settings) {
	for key, val := range flatten("", document(s)) {
		v.SetDefault(key, val)
	}
}

func flatten(prefix string, m map[string]any) map[string]any {
	res := map[string]any{}
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				res[sk] = sv
			}
			continue
		}
		res[key] = v
	}
	return res
}
