// Package archive persists extracted clips: the encoded media file on disk
// and an index row in SQLite.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calebmoore/rewind/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite index at baseDir/rewind.db and the clips
// directory next to it. The baseDir parameter allows tests to use
// t.TempDir() instead of ~/.rewind.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	clipsDir := filepath.Join(baseDir, "clips")
	if err := os.MkdirAll(clipsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create clips directory: %w", err)
	}
	_ = os.Chmod(clipsDir, 0700)

	// Pragmas in the connection string apply to every pooled connection.
	dbPath := filepath.Join(baseDir, "rewind.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ClipsDir returns the directory holding clip files under baseDir.
func ClipsDir(baseDir string) string {
	return filepath.Join(baseDir, "clips")
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS clips (
		  id            TEXT PRIMARY KEY,
		  filename      TEXT NOT NULL,
		  mime_type     TEXT NOT NULL,
		  kind          TEXT NOT NULL,
		  byte_size     INTEGER NOT NULL,
		  segment_count INTEGER NOT NULL,
		  span_ms       INTEGER NOT NULL,
		  note          TEXT,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_clips_created
		ON clips(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_clips_kind_created
		ON clips(kind, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
