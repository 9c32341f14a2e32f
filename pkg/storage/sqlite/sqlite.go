// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/storage/sqlstore"

	_ "modernc.org/sqlite"
)

func init() {
	qa.Providers.Register("sqlite", func(ctx context.Context, params map[string]string) (qa.Store, error) {
		return New(ctx, params["dsn"])
	})
}

// Dialect is the SQLite flavour of the Q&A schema.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			author_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			is_solved BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS answers (
			id INTEGER PRIMARY KEY,
			question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			author_id INTEGER NOT NULL,
			is_accepted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY,
			answer_id INTEGER NOT NULL REFERENCES answers(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			value INTEGER NOT NULL,
			UNIQUE (answer_id, user_id)
		)`,
	},
}

// Store is a SQLite-backed qa.Store.
type Store struct {
	*sqlstore.Store
}

// New opens the database at dsn (a file path or ":memory:") and creates the
// Q&A tables if needed.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// An in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}

	s := &Store{Store: sqlstore.New(db, Dialect)}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
