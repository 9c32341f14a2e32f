// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeStore serves questions, answers and vote scores from maps.
// answersByQuestion is what ListAnswers returns; answerRows backs
// GetAnswer so a row can be visible to one and not the other.
type fakeStore struct {
	questions         map[int64]qa.Question
	answersByQuestion map[int64][]qa.Answer
	answerRows        map[int64]qa.Answer
	scores            map[int64]int
	scoreErr          map[int64]error
	listErr           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions:         map[int64]qa.Question{},
		answersByQuestion: map[int64][]qa.Answer{},
		answerRows:        map[int64]qa.Answer{},
		scores:            map[int64]int{},
		scoreErr:          map[int64]error{},
	}
}

func (s *fakeStore) addQuestion(q qa.Question) {
	s.questions[q.ID] = q
}

func (s *fakeStore) addAnswer(a qa.Answer, score int) {
	s.answersByQuestion[a.QuestionID] = append(s.answersByQuestion[a.QuestionID], a)
	s.answerRows[a.ID] = a
	s.scores[a.ID] = score
}

func (s *fakeStore) GetQuestion(_ context.Context, id int64) (*qa.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", id, qa.ErrNotFound)
	}
	return &q, nil
}

func (s *fakeStore) GetAnswer(_ context.Context, id int64) (*qa.Answer, error) {
	a, ok := s.answerRows[id]
	if !ok {
		return nil, fmt.Errorf("answer %d: %w", id, qa.ErrNotFound)
	}
	return &a, nil
}

func (s *fakeStore) ListAnswers(_ context.Context, questionID int64) ([]qa.Answer, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]qa.Answer(nil), s.answersByQuestion[questionID]...), nil
}

func (s *fakeStore) VoteScore(_ context.Context, answerID int64) (int, error) {
	if err := s.scoreErr[answerID]; err != nil {
		return 0, err
	}
	return s.scores[answerID], nil
}

// fakeIndex is a memory backend with injectable failures.
type fakeIndex struct {
	*vectorstore.MemoryBackend
	addErr    error
	deleteErr error
	deletes   [][]string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{MemoryBackend: vectorstore.NewMemoryBackend()}
}

func (f *fakeIndex) Add(ctx context.Context, docs []vectorstore.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.MemoryBackend.Add(ctx, docs)
}

func (f *fakeIndex) Delete(ctx context.Context, ids []string) error {
	f.deletes = append(f.deletes, append([]string(nil), ids...))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryBackend.Delete(ctx, ids)
}

func (f *fakeIndex) get(t *testing.T, id string) (vectorstore.Document, bool) {
	t.Helper()
	docs, err := f.MemoryBackend.Get(context.Background(), []string{id})
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	if len(docs) == 0 {
		return vectorstore.Document{}, false
	}
	return docs[0], true
}

// fakeEmbedder derives a small vector from the text length.
type fakeEmbedder struct {
	err   error
	texts []string
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.texts = append(e.texts, texts...)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0.5, 0.25}
	}
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Report(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func (s *recordingSink) find(kind Kind) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

type harness struct {
	store    *fakeStore
	index    *fakeIndex
	embedder *fakeEmbedder
	sink     *recordingSink
	ix       *Indexer
}

func newHarness() *harness {
	h := &harness{
		store:    newFakeStore(),
		index:    newFakeIndex(),
		embedder: &fakeEmbedder{},
		sink:     &recordingSink{},
	}
	h.ix = New(h.store, h.store, h.index, h.embedder,
		WithSink(h.sink),
		WithClock(func() time.Time { return fixedNow }),
	)
	return h
}

var errBoom = errors.New("boom")
