package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand for one invocation.
type app struct {
	configPath string
	envFile    string
	backend    string
	directory  string
	redisAddr  string
	prefix     string
	logLevel   string

	cfg     goSession.Config
	manager *goSession.Manager
	logger  zerolog.Logger
}

// Execute runs sessionctl with os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout, os.Stderr).Execute()
}

// NewRootCmd builds the command tree writing results to out and logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Inspect and maintain stored sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with GOSESSION_* overrides")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend: memory, directory or redis")
	root.PersistentFlags().StringVar(&a.directory, "dir", "", "sessions directory for the directory backend")
	root.PersistentFlags().StringVar(&a.redisAddr, "redis-addr", "", "redis address for the redis backend")
	root.PersistentFlags().StringVar(&a.prefix, "prefix", "", "redis key prefix")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		listCmd(a),
		inspectCmd(a),
		deleteCmd(a),
		flushCmd(a),
		statCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, errOut io.Writer) error {
	if err := godotenv.Load(a.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := goSession.DefaultConfig()
	if path := firstNonEmpty(a.configPath, os.Getenv("GOSESSION_CONFIG")); path != "" {
		loaded, err := goSession.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	applyEnv(&cfg, os.Getenv)
	a.applyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	// Audit has no consumer in the CLI.
	cfg.Audit.Enabled = false
	a.cfg = cfg

	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: errOut, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	m, err := goSession.New().WithConfig(cfg).WithLogger(a.logger).Build()
	if err != nil {
		return err
	}
	a.manager = m

	a.logger.Debug().
		Str("backend", string(cfg.Storage.Backend)).
		Bool("sealed", cfg.Storage.SealSecret != "").
		Msg("storage ready")
	return nil
}

// applyEnv overlays GOSESSION_* variables onto cfg.
func applyEnv(cfg *goSession.Config, getenv func(string) string) {
	if v := getenv("GOSESSION_BACKEND"); v != "" {
		cfg.Storage.Backend = goSession.StorageBackend(strings.ToLower(v))
	}
	if v := getenv("GOSESSION_DIR"); v != "" {
		cfg.Storage.Directory = v
	}
	if v := getenv("GOSESSION_REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := getenv("GOSESSION_REDIS_PREFIX"); v != "" {
		cfg.Storage.RedisPrefix = v
	}
	if v := getenv("GOSESSION_REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.RedisTTL = d
		}
	}
	if v := getenv("GOSESSION_SEAL_SECRET"); v != "" {
		cfg.Storage.SealSecret = v
	}
	if v := getenv("GOSESSION_SEAL_SALT"); v != "" {
		cfg.Storage.SealSalt = v
	}
	if v := getenv("GOSESSION_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (a *app) applyFlags(cfg *goSession.Config) {
	if a.backend != "" {
		cfg.Storage.Backend = goSession.StorageBackend(strings.ToLower(a.backend))
	}
	if a.directory != "" {
		cfg.Storage.Directory = a.directory
	}
	if a.redisAddr != "" {
		cfg.Storage.RedisAddr = a.redisAddr
	}
	if a.prefix != "" {
		cfg.Storage.RedisPrefix = a.prefix
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
