// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore reads the Q&A application's tables (questions, answers,
// votes) through database/sql. Dialect differences are limited to the
// placeholder syntax and the schema DDL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/leseb/ragchat/pkg/qa"
)

// compile-time check
var _ qa.Store = (*Store)(nil)

// Dialect describes the SQL flavour of a driver.
type Dialect struct {
	Name string

	// Numbered placeholders ($1, $2) instead of ?.
	Numbered bool

	// Schema creates the Q&A tables when they do not exist yet.
	Schema []string
}

// Store implements qa.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. The caller keeps ownership of driver
// registration; Close closes db.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the Q&A tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s create tables: %w", s.dialect.Name, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Rebind rewrites ? placeholders for the store's dialect.
func (s *Store) Rebind(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (*qa.Question, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind(
		`SELECT id, title, content, author_id, created_at, is_solved
		 FROM questions WHERE id = ?`), id)

	var q qa.Question
	err := row.Scan(&q.ID, &q.Title, &q.Content, &q.AuthorID, &q.CreatedAt, &q.IsSolved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %d: %w", id, qa.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return &q, nil
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (*qa.Answer, error) {
	row := s.db.QueryRowContext(ctx, s.Rebind(
		`SELECT id, question_id, content, author_id, is_accepted, created_at
		 FROM answers WHERE id = ?`), id)

	var a qa.Answer
	err := row.Scan(&a.ID, &a.QuestionID, &a.Content, &a.AuthorID, &a.IsAccepted, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("answer %d: %w", id, qa.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get answer %d: %w", id, err)
	}
	return &a, nil
}

// ListAnswers orders by accepted first, then creation time, then id so that
// rows created in the same instant still come back in a stable order.
func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]qa.Answer, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind(
		`SELECT id, question_id, content, author_id, is_accepted, created_at
		 FROM answers WHERE question_id = ?
		 ORDER BY is_accepted DESC, created_at ASC, id ASC`), questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers for question %d: %w", questionID, err)
	}
	defer rows.Close()

	var out []qa.Answer
	for rows.Next() {
		var a qa.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Content, &a.AuthorID, &a.IsAccepted, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers for question %d: %w", questionID, err)
	}
	return out, nil
}

// VoteScore sums the +1/-1 votes cast on an answer.
func (s *Store) VoteScore(ctx context.Context, answerID int64) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, s.Rebind(
		`SELECT COALESCE(SUM(value), 0) FROM votes WHERE answer_id = ?`), answerID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("vote score for answer %d: %w", answerID, err)
	}
	return score, nil
}
