// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logsink

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS readings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session     TEXT NOT NULL,
    received_at TEXT NOT NULL,
    line        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS readings_session ON readings (session);`

	insertReadingSQL = `
INSERT INTO readings (session,
                      received_at,
                      line)
VALUES (?, ?, ?)`
)

// SQLite keeps every logged line in a database, tagged with the session id
// and the time it was received. Several sessions can share one file.
type SQLite struct {
	path    string
	session string
	now     func() time.Time

	db   *sql.DB
	stmt *sql.Stmt

	closeOnce sync.Once
	closeErr  error
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path, session string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	if _, err := db.Exec(initSchemaSQL); err != nil {
		db.Close()
		return nil, &OpenError{Path: path, Err: fmt.Errorf("initializing schema: %w", err)}
	}

	stmt, err := db.Prepare(insertReadingSQL)
	if err != nil {
		db.Close()
		return nil, &OpenError{Path: path, Err: fmt.Errorf("preparing statement: %w", err)}
	}

	return &SQLite{path: path, session: session, now: time.Now, db: db, stmt: stmt}, nil
}

// Append inserts one row.
func (s *SQLite) Append(line string) error {
	if _, err := s.stmt.Exec(s.session, s.now().UTC().Format(time.RFC3339Nano), line); err != nil {
		return fmt.Errorf("insert into %s: %w", s.path, err)
	}
	return nil
}

// Close releases the statement and the database handle.
func (s *SQLite) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stmt.Close(); err != nil {
			s.closeErr = err
		}
		if err := s.db.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
