package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/vietddude/launcher/internal/metrics"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the sqlx connection to the local record store.
type DB struct {
	*sqlx.DB
	path string
}

// Open opens (creating if needed) the store at path and runs pending
// migrations.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Single writer keeps us clear of SQLITE_BUSY; the launcher's record
	// traffic is tiny.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Backup checkpoints the WAL and copies the database file aside.
func (d *DB) Backup(ctx context.Context) (string, error) {
	if _, err := d.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("failed to checkpoint store: %w", err)
	}

	dest := fmt.Sprintf("%s.backup.%d", d.path, time.Now().Unix())
	if err := copyFile(d.path, dest); err != nil {
		return "", fmt.Errorf("failed to copy store: %w", err)
	}
	return dest, nil
}

// StartMetricsCollector periodically exports connection stats.
func (d *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.StoreConnectionsOpen.Set(float64(d.Stats().OpenConnections))
			}
		}
	}()
}

// copyFile writes to a temp file in the destination directory first so
// a crash never leaves a half-written backup under the final name.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".backup-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
