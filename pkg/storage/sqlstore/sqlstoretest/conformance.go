// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstoretest provides a conformance suite for the relational Q&A
// stores.
package sqlstoretest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
)

// Store is a qa.Store whose tables can be seeded directly.
type Store interface {
	qa.Store
	DB() *sql.DB
	Rebind(query string) string
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Seed inserts a question with two answers and votes:
//
//	question 1 "How do I cache?" (solved)
//	answer 10 (not accepted, +1 +1 -1)
//	answer 11 (accepted, created later, no votes)
//	answer 12 (not accepted, created before 10)
//	question 2 with no answers
func Seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := s.DB().ExecContext(ctx, s.Rebind(query), args...); err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
	}

	exec(`INSERT INTO questions (id, title, content, author_id, created_at, is_solved) VALUES (?, ?, ?, ?, ?, ?)`,
		1, "How do I cache?", "Details here", 7, base, true)
	exec(`INSERT INTO questions (id, title, content, author_id, created_at, is_solved) VALUES (?, ?, ?, ?, ?, ?)`,
		2, "Unanswered", "", 8, base, false)

	exec(`INSERT INTO answers (id, question_id, content, author_id, is_accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		10, 1, "Use a map", 9, false, base.Add(2*time.Minute))
	exec(`INSERT INTO answers (id, question_id, content, author_id, is_accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		11, 1, "Use an LRU", 9, true, base.Add(3*time.Minute))
	exec(`INSERT INTO answers (id, question_id, content, author_id, is_accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		12, 1, "Don't", 5, false, base.Add(time.Minute))

	exec(`INSERT INTO votes (id, answer_id, user_id, value) VALUES (?, ?, ?, ?)`, 100, 10, 1, 1)
	exec(`INSERT INTO votes (id, answer_id, user_id, value) VALUES (?, ?, ?, ?)`, 101, 10, 2, 1)
	exec(`INSERT INTO votes (id, answer_id, user_id, value) VALUES (?, ?, ?, ?)`, 102, 10, 3, -1)
}

// RunConformanceTests seeds the store returned by newStore and checks every
// read path. newStore must return an empty store.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetQuestion", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		q, err := s.GetQuestion(ctx, 1)
		if err != nil {
			t.Fatalf("GetQuestion: %v", err)
		}
		if q.Title != "How do I cache?" || q.Content != "Details here" || q.AuthorID != 7 || !q.IsSolved {
			t.Errorf("unexpected question: %+v", q)
		}
		if !q.CreatedAt.Equal(base) {
			t.Errorf("CreatedAt = %v, want %v", q.CreatedAt, base)
		}
	})

	t.Run("GetQuestionNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetQuestion(ctx, 404)
		if !errors.Is(err, qa.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetAnswer", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		a, err := s.GetAnswer(ctx, 11)
		if err != nil {
			t.Fatalf("GetAnswer: %v", err)
		}
		if a.QuestionID != 1 || a.Content != "Use an LRU" || !a.IsAccepted {
			t.Errorf("unexpected answer: %+v", a)
		}

		if _, err := s.GetAnswer(ctx, 404); !errors.Is(err, qa.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListAnswersOrder", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		answers, err := s.ListAnswers(ctx, 1)
		if err != nil {
			t.Fatalf("ListAnswers: %v", err)
		}
		var ids []int64
		for _, a := range answers {
			ids = append(ids, a.ID)
		}
		want := []int64{11, 12, 10}
		if len(ids) != len(want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Fatalf("ids = %v, want %v", ids, want)
			}
		}
	})

	t.Run("ListAnswersEmpty", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		answers, err := s.ListAnswers(ctx, 2)
		if err != nil {
			t.Fatalf("ListAnswers: %v", err)
		}
		if len(answers) != 0 {
			t.Errorf("expected no answers, got %d", len(answers))
		}
	})

	t.Run("VoteScore", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		tests := []struct {
			answerID int64
			want     int
		}{
			{10, 1},
			{11, 0},
			{404, 0},
		}
		for _, tt := range tests {
			got, err := s.VoteScore(ctx, tt.answerID)
			if err != nil {
				t.Fatalf("VoteScore(%d): %v", tt.answerID, err)
			}
			if got != tt.want {
				t.Errorf("VoteScore(%d) = %d, want %d", tt.answerID, got, tt.want)
			}
		}
	})
}
