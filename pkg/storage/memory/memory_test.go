// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seeded() *Store {
	s := New()
	s.PutQuestion(qa.Question{ID: 1, Title: "How do I cache?", Content: "Details here", AuthorID: 7, CreatedAt: base, IsSolved: true})
	s.PutQuestion(qa.Question{ID: 2, Title: "Unanswered", AuthorID: 8, CreatedAt: base})
	s.PutAnswer(qa.Answer{ID: 10, QuestionID: 1, Content: "Use a map", CreatedAt: base.Add(2 * time.Minute)})
	s.PutAnswer(qa.Answer{ID: 11, QuestionID: 1, Content: "Use an LRU", IsAccepted: true, CreatedAt: base.Add(3 * time.Minute)})
	s.PutAnswer(qa.Answer{ID: 12, QuestionID: 1, Content: "Don't", CreatedAt: base.Add(time.Minute)})
	s.Vote(10, 1, 1)
	s.Vote(10, 2, 1)
	s.Vote(10, 3, -1)
	return s
}

func TestStore_Get(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	q, err := s.GetQuestion(ctx, 1)
	if err != nil || q.Title != "How do I cache?" || !q.IsSolved {
		t.Fatalf("GetQuestion = %+v, %v", q, err)
	}
	a, err := s.GetAnswer(ctx, 11)
	if err != nil || !a.IsAccepted || a.QuestionID != 1 {
		t.Fatalf("GetAnswer = %+v, %v", a, err)
	}

	if _, err := s.GetQuestion(ctx, 404); !errors.Is(err, qa.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetAnswer(ctx, 404); !errors.Is(err, qa.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListAnswersOrder(t *testing.T) {
	s := seeded()
	got, err := s.ListAnswers(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{11, 12, 10}
	if len(got) != len(want) {
		t.Fatalf("got %d answers, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("answer %d = %d, want %d", i, got[i].ID, id)
		}
	}

	empty, err := s.ListAnswers(context.Background(), 2)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListAnswers(2) = %v, %v", empty, err)
	}
}

func TestStore_VoteScore(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	tests := []struct {
		answerID int64
		want     int
	}{
		{10, 1},
		{11, 0},
		{404, 0},
	}
	for _, tt := range tests {
		if got, err := s.VoteScore(ctx, tt.answerID); err != nil || got != tt.want {
			t.Errorf("VoteScore(%d) = %d, %v; want %d", tt.answerID, got, err, tt.want)
		}
	}

	// A user changing their vote replaces it.
	s.Vote(10, 3, 1)
	if got, _ := s.VoteScore(ctx, 10); got != 3 {
		t.Errorf("after re-vote score = %d, want 3", got)
	}
}

func TestStore_Delete(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	s.DeleteAnswer(12)
	answers, _ := s.ListAnswers(ctx, 1)
	if len(answers) != 2 {
		t.Errorf("expected 2 answers after delete, got %d", len(answers))
	}

	s.DeleteQuestion(1)
	if _, err := s.GetQuestion(ctx, 1); !errors.Is(err, qa.ErrNotFound) {
		t.Errorf("question should be gone, got %v", err)
	}
	if _, err := s.GetAnswer(ctx, 10); !errors.Is(err, qa.ErrNotFound) {
		t.Errorf("answers should cascade, got %v", err)
	}
	if got, _ := s.VoteScore(ctx, 10); got != 0 {
		t.Errorf("votes should cascade, score = %d", got)
	}
}

func TestRegistered(t *testing.T) {
	st, err := qa.Providers.New(context.Background(), "memory", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := st.(*Store); !ok {
		t.Errorf("unexpected store type %T", st)
	}
}
