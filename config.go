package goSession

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/handle"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Save    SaveConfig    `yaml:"save"`
	Handle  HandleConfig  `yaml:"handle"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects the storage implementation built by [Builder.Build]
// when no storage is supplied explicitly.
type StorageBackend string

const (
	// BackendMemory keeps sessions in process memory.
	BackendMemory StorageBackend = "memory"
	// BackendDirectory writes one file per session to a local directory.
	BackendDirectory StorageBackend = "directory"
	// BackendRedis stores sessions in Redis.
	BackendRedis StorageBackend = "redis"
)

// StorageConfig defines a public type used by goSession APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	Backend     StorageBackend `yaml:"backend"`
	Directory   string         `yaml:"directory"`
	RedisAddr   string         `yaml:"redis_addr"`
	RedisPrefix string         `yaml:"redis_prefix"`
	RedisTTL    time.Duration  `yaml:"redis_ttl"`
	// SealSecret enables at-rest encryption of blobs when non-empty.
	SealSecret string `yaml:"seal_secret"`
	SealSalt   string `yaml:"seal_salt"`
}

/*
====================================
SAVE CONFIG
====================================
*/

// SaveConfig defines a public type used by goSession APIs.
//
// SaveConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SaveConfig struct {
	// ContinueOnError makes Save attempt every cached session and return the
	// joined failures. When false, Save stops at the first failure.
	ContinueOnError bool `yaml:"continue_on_error"`
}

/*
====================================
HANDLE CONFIG
====================================
*/

// HandleConfig defines a public type used by goSession APIs.
//
// HandleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HandleConfig struct {
	Enabled       bool          `yaml:"enabled"`
	TTL           time.Duration `yaml:"ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	PrivateKey    string        `yaml:"private_key"`
	PublicKey     string        `yaml:"public_key"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	Leeway        time.Duration `yaml:"leeway"`

	// MaxRejections > 0 throttles a client after that many rejected handles
	// within RejectionWindow. Counters live in Redis.
	MaxRejections   int           `yaml:"max_rejections"`
	RejectionWindow time.Duration `yaml:"rejection_window"`
}

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig defines a public type used by goSession APIs.
//
// LogConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns an in-memory configuration with metrics enabled and
// audit and handles disabled.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Backend:     BackendMemory,
			RedisPrefix: "sess",
		},
		Handle: HandleConfig{
			TTL:             15 * time.Minute,
			SigningMethod:   string(handle.MethodHS256),
			RejectionWindow: 15 * time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML file on top of [DefaultConfig] and validates the
// result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first configuration error found, or nil.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDirectory:
		if strings.TrimSpace(c.Storage.Directory) == "" {
			return errors.New("Storage Directory is required for the directory backend")
		}
	case BackendRedis:
		if c.Storage.RedisPrefix == "" {
			return errors.New("Storage RedisPrefix is required for the redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return errors.New("Storage RedisTTL must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported Storage Backend %q", c.Storage.Backend)
	}

	if c.Storage.SealSecret != "" {
		if len(c.Storage.SealSecret) < 16 {
			return errors.New("Storage SealSecret must be >= 16 bytes")
		}
		if len(c.Storage.SealSalt) < 16 {
			return errors.New("Storage SealSalt must be >= 16 bytes when SealSecret is set")
		}
	}

	if c.Handle.Enabled {
		if c.Handle.TTL <= 0 {
			return errors.New("Handle TTL must be > 0")
		}
		switch handle.SigningMethod(c.Handle.SigningMethod) {
		case handle.MethodHS256:
			if len(c.Handle.PrivateKey) < 32 {
				return errors.New("Handle hs256 requires PrivateKey >= 32 bytes")
			}
		case handle.MethodEd25519:
			if c.Handle.PublicKey == "" {
				return errors.New("Handle ed25519 requires PublicKey")
			}
		default:
			return errors.New("Handle SigningMethod must be 'hs256' or 'ed25519'")
		}
		if c.Handle.Leeway < 0 || c.Handle.Leeway > 2*time.Minute {
			return errors.New("Handle Leeway must be between 0 and 2m")
		}
		if c.Handle.MaxRejections < 0 {
			return errors.New("Handle MaxRejections must be >= 0")
		}
		if c.Handle.MaxRejections > 0 && c.Handle.RejectionWindow <= 0 {
			return errors.New("Handle RejectionWindow must be > 0 when MaxRejections is set")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("invalid Log Level %q: %w", c.Log.Level, err)
		}
	}

	return nil
}
