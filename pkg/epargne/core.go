package epargne

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath          string
	Logger          *slog.Logger
	QuoteAPIKey     string
	QuoteMaxAge     time.Duration
	HTTPTimeout     time.Duration
	QuoteHTTPClient HTTPDoer
}

// Core provides access to the savings-projection and portfolio business
// logic and its storage.
type Core struct {
	db       *sql.DB
	logger   *slog.Logger
	quotes   *quoteClient
	quoteAge time.Duration
	dbPath   string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	// Cascade deletes rely on FK enforcement.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	qc := newQuoteClient(quoteClientOptions{
		APIKey:      opts.QuoteAPIKey,
		Logger:      logger,
		HTTPTimeout: defaultDuration(opts.HTTPTimeout, 10*time.Second),
		HTTPClient:  opts.QuoteHTTPClient,
	})

	return &Core{
		db:       db,
		logger:   logger,
		quotes:   qc,
		quoteAge: defaultDuration(opts.QuoteMaxAge, 15*time.Minute),
		dbPath:   cleanPath,
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

func defaultDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
