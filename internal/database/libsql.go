// Package database opens the libsql connection backing the repositories.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/mcrovella/fluxtwin/internal/util"
)

// New opens a libsql database. Remote URLs get the auth token appended;
// file: URLs are used as-is.
func New(databaseURL, authToken string) (*sql.DB, error) {
	connStr := databaseURL
	if authToken != "" {
		connStr = databaseURL + "?authToken=" + authToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Remote libsql aggressively closes idle streams; keep the pool small
	// and connections fresh.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// DefaultURL is the local-file fallback under the XDG data dir, used when
// no database URL is configured.
func DefaultURL() (string, error) {
	dir, err := util.GetXDGDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return "file:" + filepath.Join(dir, "fluxtwin.db"), nil
}
