package deferq

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DefaultJournalRetention = 7 * 24 * time.Hour

type Options struct {
	Addr          string `env:"DEFERQ_ADDR"`
	DisableServer bool   `env:"DEFERQ_DISABLE_SERVER"`

	StatePath      string `env:"DEFERQ_STATE_PATH"`
	DisableJournal bool   `env:"DEFERQ_DISABLE_JOURNAL"`

	// JournalRetention is how long finished journal entries are kept. They are
	// pruned when deferq starts. Zero selects DefaultJournalRetention and a
	// negative value keeps them forever.
	JournalRetention time.Duration `env:"DEFERQ_JOURNAL_RETENTION"`

	LogLevel slog.Level `env:"DEFERQ_LOG_LEVEL" envDefault:"INFO"`

	// Logger overrides the stdout text logger built from LogLevel.
	Logger *slog.Logger `env:"-"`
}

func DefaultOptions(opts *Options) *Options {
	o := &Options{
		Addr:      ":8080",
		StatePath: "deferq/state.db",
		LogLevel:  slog.LevelInfo,

		JournalRetention: DefaultJournalRetention,
	}
	if opts == nil {
		return o
	}

	if len(opts.Addr) > 0 {
		o.Addr = opts.Addr
	}

	if len(opts.StatePath) > 0 {
		o.StatePath = opts.StatePath
	}

	if opts.JournalRetention != 0 {
		o.JournalRetention = opts.JournalRetention
	}

	o.DisableServer = opts.DisableServer
	o.DisableJournal = opts.DisableJournal
	o.LogLevel = opts.LogLevel
	o.Logger = opts.Logger

	return o
}

// LoadOptions reads Options from the environment. A .env file in the working
// directory is loaded first when present.
func LoadOptions() (*Options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var o Options
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return DefaultOptions(&o), nil
}
