// Package config loads the layout server's settings from a YAML file with
// FRLAYOUT_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-frlayout/pkg/export"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	frtls "github.com/dd0wney/cluso-frlayout/pkg/tls"
	"github.com/dd0wney/cluso-frlayout/pkg/validation"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// HS256 keys shorter than the hash are rejected.
const minSecretLen = 32

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Layout    *layout.Config  `yaml:"layout"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Transport TransportConfig `yaml:"transport"`
	Export    ExportConfig    `yaml:"export"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gte=0"`
	MaxQueryDepth   int           `yaml:"max_query_depth" validate:"gte=0"`
	RunTimeout      time.Duration `yaml:"run_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// MaxActiveRuns marks the server degraded once reached; zero disables it.
	MaxActiveRuns  int              `yaml:"max_active_runs" validate:"gte=0"`
	CORSOrigins    []string         `yaml:"cors_origins"`
	TrustedProxies []string         `yaml:"trusted_proxies"`
	RateLimit      *RateLimitConfig `yaml:"rate_limit"`
	TLS            *frtls.Config    `yaml:"tls"`
}

// RateLimitConfig limits layout requests per client.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" validate:"gte=1"`
}

// StoreConfig selects the graph store. An empty driver means inline graphs
// only.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `yaml:"dsn"`
}

// TransportConfig enables snapshot publishing when Address is set.
type TransportConfig struct {
	Address string `yaml:"address"`
}

// ExportConfig enables writing the final positions of every run.
type ExportConfig struct {
	Dir    string           `yaml:"dir"`
	Format export.Format    `yaml:"format" validate:"omitempty,oneof=json yaml"`
	S3     *export.S3Config `yaml:"s3"`
}

// AuthConfig enables bearer tokens when Secret is set.
type AuthConfig struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl" validate:"gte=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Default returns a configuration that serves inline layouts on :8080.
func Default() *Config {
	return &Config{
		Layout: layout.DefaultConfig(),
		Server: ServerConfig{
			Address:         ":8080",
			MaxBodyBytes:    10 << 20,
			RunTimeout:      time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Export: ExportConfig{Format: export.FormatJSON},
		Auth:   AuthConfig{TTL: time.Hour},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies the environment and
// validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := cfg.Decode(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges YAML from r over c. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ApplyEnv overrides fields from FRLAYOUT_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitAndTrim(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		*dst = d
		return nil
	}

	str("FRLAYOUT_ADDR", &c.Server.Address)
	list("FRLAYOUT_CORS_ORIGINS", &c.Server.CORSOrigins)
	list("FRLAYOUT_TRUSTED_PROXIES", &c.Server.TrustedProxies)
	str("FRLAYOUT_STORE_DRIVER", &c.Store.Driver)
	str("FRLAYOUT_STORE_DSN", &c.Store.DSN)
	str("FRLAYOUT_TRANSPORT_ADDR", &c.Transport.Address)
	str("FRLAYOUT_EXPORT_DIR", &c.Export.Dir)
	str("FRLAYOUT_JWT_SECRET", &c.Auth.Secret)
	str("FRLAYOUT_JWT_ISSUER", &c.Auth.Issuer)
	str("FRLAYOUT_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("FRLAYOUT_S3_BUCKET"); ok {
		if c.Export.S3 == nil {
			c.Export.S3 = &export.S3Config{}
		}
		c.Export.S3.Bucket = strings.TrimSpace(v)
	}
	if v, ok := lookup("FRLAYOUT_ITERATIONS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: FRLAYOUT_ITERATIONS: %v", ErrInvalid, err)
		}
		if c.Layout == nil {
			c.Layout = layout.DefaultConfig()
		}
		c.Layout.Iterations = n
	}
	cert, hasCert := lookup("FRLAYOUT_TLS_CERT")
	key, hasKey := lookup("FRLAYOUT_TLS_KEY")
	if hasCert || hasKey {
		if c.Server.TLS == nil {
			c.Server.TLS = frtls.DefaultConfig()
		}
		c.Server.TLS.Enabled = true
		c.Server.TLS.CertFile = strings.TrimSpace(cert)
		c.Server.TLS.KeyFile = strings.TrimSpace(key)
	}
	if err := dur("FRLAYOUT_RUN_TIMEOUT", &c.Server.RunTimeout); err != nil {
		return err
	}
	return dur("FRLAYOUT_JWT_TTL", &c.Auth.TTL)
}

// Validate checks every section and the rules that span fields.
func (c *Config) Validate() error {
	if c.Layout == nil {
		return fmt.Errorf("%w: layout: %v", ErrInvalid, layout.ErrMissingConfig)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: layout: %v", ErrInvalid, err)
	}
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	t := c.Server.TLS
	cv := validation.NewConfigValidator("config").
		When(c.Store.Driver != "", func(v *validation.ConfigValidator) {
			v.Required("store.dsn", c.Store.DSN)
		}).
		When(c.Auth.Secret != "", func(v *validation.ConfigValidator) {
			v.Custom("auth.secret", func() error {
				if len(c.Auth.Secret) < minSecretLen {
					return fmt.Errorf("secret must be at least %d characters", minSecretLen)
				}
				return nil
			})
		}).
		When(t != nil && t.Enabled, func(v *validation.ConfigValidator) {
			v.Custom("server.tls.min_version", func() error {
				_, err := t.Version()
				return err
			}).Custom("server.tls.key_file", func() error {
				if (t.CertFile == "") != (t.KeyFile == "") {
					return errors.New("cert_file and key_file must be set together")
				}
				return nil
			}).Custom("server.tls", func() error {
				if t.CertFile == "" && !t.AutoGenerate {
					return frtls.ErrNoCertificate
				}
				return nil
			})
		}).
		When(c.Export.S3 != nil, func(v *validation.ConfigValidator) {
			v.Required("export.s3.bucket", c.Export.S3.Bucket)
		})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
