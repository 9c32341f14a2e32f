// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory is an in-memory qa.Store for local runs and tests. The
// Put methods stand in for the Q&A application's own writes.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leseb/ragchat/pkg/qa"
)

func init() {
	qa.Providers.Register("memory", func(_ context.Context, _ map[string]string) (qa.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory implementation of qa.Store
type Store struct {
	mu        sync.RWMutex
	questions map[int64]qa.Question
	answers   map[int64]qa.Answer
	votes     map[int64]map[int64]int // answer id -> user id -> value
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		questions: make(map[int64]qa.Question),
		answers:   make(map[int64]qa.Answer),
		votes:     make(map[int64]map[int64]int),
	}
}

// PutQuestion inserts or replaces a question.
func (s *Store) PutQuestion(q qa.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

// PutAnswer inserts or replaces an answer.
func (s *Store) PutAnswer(a qa.Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[a.ID] = a
}

// Vote records value (+1 or -1) from userID, replacing that user's earlier
// vote on the answer.
func (s *Store) Vote(answerID, userID int64, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.votes[answerID] == nil {
		s.votes[answerID] = make(map[int64]int)
	}
	s.votes[answerID][userID] = value
}

// DeleteQuestion removes a question together with its answers and votes.
func (s *Store) DeleteQuestion(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, id)
	for aid, a := range s.answers {
		if a.QuestionID == id {
			delete(s.answers, aid)
			delete(s.votes, aid)
		}
	}
}

// DeleteAnswer removes an answer and its votes.
func (s *Store) DeleteAnswer(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, id)
	delete(s.votes, id)
}

// GetQuestion retrieves a question by ID
func (s *Store) GetQuestion(_ context.Context, id int64) (*qa.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", id, qa.ErrNotFound)
	}
	return &q, nil
}

// GetAnswer retrieves an answer by ID
func (s *Store) GetAnswer(_ context.Context, id int64) (*qa.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, fmt.Errorf("answer %d: %w", id, qa.ErrNotFound)
	}
	return &a, nil
}

// ListAnswers returns the answers of a question, accepted first, then
// oldest first.
func (s *Store) ListAnswers(_ context.Context, questionID int64) ([]qa.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []qa.Answer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsAccepted != out[j].IsAccepted {
			return out[i].IsAccepted
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// VoteScore sums the votes on an answer.
func (s *Store) VoteScore(_ context.Context, answerID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, v := range s.votes[answerID] {
		total += v
	}
	return total, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
