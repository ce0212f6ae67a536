package goSession

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/handle"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config    Config
	storage   storage.Storage
	redis     redis.UniversalClient
	logger    *zerolog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStorage describes the withstorage operation and its observable behavior.
//
// WithStorage sets an explicit backend. It takes precedence over
// Config.Storage.Backend; sealing still applies when SealSecret is set.
func (b *Builder) WithStorage(s storage.Storage) *Builder {
	b.storage = s
	return b
}

// WithRedis supplies the client used by the redis backend instead of dialing
// Config.Storage.RedisAddr.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger. Without it the manager logs nothing.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink has effect only when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histogram recording.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, assembles the storage chain and returns
// a ready [Manager]. A Builder can be built once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- STORAGE --------
	store := b.storage
	if store == nil {
		var err error
		store, err = b.buildStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Storage.SealSecret != "" {
		sealed, err := storage.NewSealed(store, []byte(cfg.Storage.SealSecret), []byte(cfg.Storage.SealSalt))
		if err != nil {
			return nil, err
		}
		store = sealed
	}

	// -------- LOGGER --------
	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
		if cfg.Log.Level != "" {
			level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
			if err != nil {
				return nil, err
			}
			logger = logger.Level(level)
		}
	}

	m := &Manager{
		config:   cfg,
		storage:  store,
		sessions: make(map[string]*session.Session),
		logger:   logger.With().Str("component", "gosession").Logger(),
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	// -------- HANDLES --------
	if cfg.Handle.Enabled {
		signer, err := handle.NewSigner(handle.Config{
			TTL:           cfg.Handle.TTL,
			SigningMethod: handle.SigningMethod(cfg.Handle.SigningMethod),
			PrivateKey:    []byte(cfg.Handle.PrivateKey),
			PublicKey:     []byte(cfg.Handle.PublicKey),
			Issuer:        cfg.Handle.Issuer,
			Audience:      cfg.Handle.Audience,
			Leeway:        cfg.Handle.Leeway,
		})
		if err != nil {
			_ = m.audit.Close(context.Background())
			return nil, err
		}
		m.signer = signer

		if cfg.Handle.MaxRejections > 0 {
			client, err := b.redisClient(cfg.Storage)
			if err != nil {
				_ = m.audit.Close(context.Background())
				return nil, fmt.Errorf("handle throttling: %w", err)
			}
			m.throttle = rate.New(client, rate.Config{
				Prefix:      cfg.Storage.RedisPrefix,
				MaxAttempts: cfg.Handle.MaxRejections,
				Window:      cfg.Handle.RejectionWindow,
			})
		}
	}

	b.built = true

	return m, nil
}

func (b *Builder) buildStorage(cfg StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return storage.NewMemory(), nil
	case BackendDirectory:
		return storage.NewDirectory(cfg.Directory)
	case BackendRedis:
		client, err := b.redisClient(cfg)
		if err != nil {
			return nil, err
		}
		return storage.NewRedis(client, cfg.RedisPrefix, cfg.RedisTTL), nil
	default:
		return nil, fmt.Errorf("unsupported Storage Backend %q", cfg.Backend)
	}
}

// redisClient returns the client from WithRedis, dialing Storage RedisAddr
// on first use when none was given.
func (b *Builder) redisClient(cfg StorageConfig) (redis.UniversalClient, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis client or Storage RedisAddr required")
	}
	b.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return b.redis, nil
}
