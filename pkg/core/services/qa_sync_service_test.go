// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/core/qaindex"
	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/storage/sqlite"
	"github.com/leseb/ragchat/pkg/storage/sqlstore/sqlstoretest"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

type fakeReader struct {
	answers map[int64]qa.Answer
	err     error
}

func (f *fakeReader) GetQuestion(_ context.Context, id int64) (*qa.Question, error) {
	return nil, fmt.Errorf("question %d: %w", id, qa.ErrNotFound)
}

func (f *fakeReader) GetAnswer(_ context.Context, id int64) (*qa.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.answers[id]
	if !ok {
		return nil, fmt.Errorf("answer %d: %w", id, qa.ErrNotFound)
	}
	return &a, nil
}

func (f *fakeReader) ListAnswers(context.Context, int64) ([]qa.Answer, error) {
	return nil, nil
}

// recordingIndexer logs each call as "<op>:<id>".
type recordingIndexer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingIndexer) record(op string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s:%d", op, id))
}

func (r *recordingIndexer) ReindexQuestion(_ context.Context, id int64) error {
	r.record("reindex", id)
	return r.err
}

func (r *recordingIndexer) IndexAnswer(_ context.Context, a *qa.Answer) error {
	r.record("index_answer", a.ID)
	return r.err
}

func (r *recordingIndexer) UpdateAnswerMetadata(_ context.Context, a *qa.Answer) error {
	r.record("update_answer", a.ID)
	return r.err
}

func (r *recordingIndexer) RemoveQuestion(_ context.Context, id int64) {
	r.record("remove_question", id)
}

func (r *recordingIndexer) RemoveAnswer(_ context.Context, id int64) error {
	r.record("remove_answer", id)
	return r.err
}

func TestQASyncService_Dispatch(t *testing.T) {
	reader := &fakeReader{answers: map[int64]qa.Answer{
		10: {ID: 10, QuestionID: 1},
	}}

	tests := []struct {
		name string
		ev   QAEvent
		want string
	}{
		{"question created", QAEvent{Type: EventQuestionCreated, QuestionID: 1}, "reindex:1"},
		{"question updated", QAEvent{Type: EventQuestionUpdated, QuestionID: 1}, "reindex:1"},
		{"question deleted", QAEvent{Type: EventQuestionDeleted, QuestionID: 1}, "remove_question:1"},
		{"answer created", QAEvent{Type: EventAnswerCreated, AnswerID: 10}, "index_answer:10"},
		{"answer updated", QAEvent{Type: EventAnswerUpdated, QuestionID: 1, AnswerID: 10}, "index_answer:10"},
		{"answer voted", QAEvent{Type: EventAnswerVoted, AnswerID: 10}, "update_answer:10"},
		{"answer accepted", QAEvent{Type: EventAnswerAccepted, AnswerID: 10}, "update_answer:10"},
		{"answer unaccepted", QAEvent{Type: EventAnswerUnaccepted, AnswerID: 10}, "update_answer:10"},
		{"answer deleted with parent", QAEvent{Type: EventAnswerDeleted, QuestionID: 1, AnswerID: 10}, "reindex:1"},
		{"answer deleted without parent", QAEvent{Type: EventAnswerDeleted, AnswerID: 10}, "remove_answer:10"},
		{"vanished answer with parent", QAEvent{Type: EventAnswerVoted, QuestionID: 3, AnswerID: 99}, "reindex:3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := &recordingIndexer{}
			svc := NewQASyncService(reader, ix, nil)
			if err := svc.Handle(context.Background(), tt.ev); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(ix.calls) != 1 || ix.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", ix.calls, tt.want)
			}
		})
	}
}

func TestQASyncService_VanishedAnswerWithoutParent(t *testing.T) {
	ix := &recordingIndexer{}
	svc := NewQASyncService(&fakeReader{}, ix, nil)
	if err := svc.Handle(context.Background(), QAEvent{Type: EventAnswerCreated, AnswerID: 5}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(ix.calls) != 0 {
		t.Errorf("expected no index calls, got %v", ix.calls)
	}
}

func TestQASyncService_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		reader *fakeReader
		ixErr  error
		ev     QAEvent
		want   error
	}{
		{"unknown type", &fakeReader{}, nil, QAEvent{Type: "question.archived", QuestionID: 1}, ErrUnknownEvent},
		{"question without id", &fakeReader{}, nil, QAEvent{Type: EventQuestionCreated}, ErrInvalidEvent},
		{"answer without id", &fakeReader{}, nil, QAEvent{Type: EventAnswerVoted, QuestionID: 1}, ErrInvalidEvent},
		{"reader failure", &fakeReader{err: boom}, nil, QAEvent{Type: EventAnswerCreated, QuestionID: 1, AnswerID: 2}, boom},
		{"indexer failure", &fakeReader{}, boom, QAEvent{Type: EventQuestionCreated, QuestionID: 1}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewQASyncService(tt.reader, &recordingIndexer{err: tt.ixErr}, nil)
			if err := svc.Handle(context.Background(), tt.ev); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// blockingIndexer tracks how many calls run at once per question.
type blockingIndexer struct {
	recordingIndexer
	mu       sync.Mutex
	inFlight map[int64]int
	maxSeen  map[int64]int
}

func (b *blockingIndexer) ReindexQuestion(ctx context.Context, id int64) error {
	b.mu.Lock()
	b.inFlight[id]++
	if b.inFlight[id] > b.maxSeen[id] {
		b.maxSeen[id] = b.inFlight[id]
	}
	b.mu.Unlock()

	time.Sleep(time.Millisecond)

	b.mu.Lock()
	b.inFlight[id]--
	b.mu.Unlock()
	return nil
}

func TestQASyncService_SerializesPerQuestion(t *testing.T) {
	ix := &blockingIndexer{inFlight: map[int64]int{}, maxSeen: map[int64]int{}}
	svc := NewQASyncService(&fakeReader{}, ix, nil)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(qid int64) {
			defer wg.Done()
			if err := svc.Handle(context.Background(), QAEvent{Type: EventQuestionUpdated, QuestionID: qid}); err != nil {
				t.Errorf("Handle: %v", err)
			}
		}(int64(i%2 + 1))
	}
	wg.Wait()

	for qid, n := range ix.maxSeen {
		if n != 1 {
			t.Errorf("question %d saw %d concurrent reindexes", qid, n)
		}
	}
	if svc.locks.size() != 0 {
		t.Errorf("expected lock table to drain, %d keys left", svc.locks.size())
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := k.Lock(1)
		unlock()
		close(done)
	}()

	unlockB := k.Lock(2)
	unlockB()

	select {
	case <-done:
		t.Fatal("second Lock(1) must wait for the first")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-done
	if k.size() != 0 {
		t.Errorf("size = %d, want 0", k.size())
	}
}

func TestQASyncService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sqlstoretest.Seed(t, store)

	index := vectorstore.NewMemoryBackend()
	if err := index.Init(ctx, api.DefaultMockDimensions); err != nil {
		t.Fatal(err)
	}
	indexer := qaindex.New(store, store, index, api.NewMockEmbeddingClient(0))
	svc := NewQASyncService(store, indexer, nil)

	has := func(id string) bool {
		t.Helper()
		docs, err := index.Get(ctx, []string{id})
		if err != nil {
			t.Fatal(err)
		}
		return len(docs) == 1
	}

	if err := svc.Handle(ctx, QAEvent{Type: EventQuestionCreated, QuestionID: 2}); err != nil {
		t.Fatalf("question 2: %v", err)
	}
	if !has("question-only:2") {
		t.Error("question without answers should be indexed question-only")
	}

	if err := svc.Handle(ctx, QAEvent{Type: EventAnswerAccepted, AnswerID: 11}); err != nil {
		t.Fatalf("answer 11: %v", err)
	}
	if !has("combined:1") {
		t.Fatal("expected combined:1 after answer event")
	}
	docs, _ := index.Get(ctx, []string{"combined:1"})
	if docs[0].Metadata["answer_count"] != "3" || docs[0].Metadata["has_accepted_answer"] != "True" {
		t.Errorf("unexpected metadata %v", docs[0].Metadata)
	}

	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := store.DB().ExecContext(ctx, store.Rebind(query), args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}

	// First answer on question 2 moves it from question-only to combined.
	exec(`INSERT INTO answers (id, question_id, content, author_id, is_accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		20, 2, "Try restarting", 3, false, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if err := svc.Handle(ctx, QAEvent{Type: EventAnswerCreated, QuestionID: 2, AnswerID: 20}); err != nil {
		t.Fatalf("answer 20 created: %v", err)
	}
	if !has("combined:2") || has("question-only:2") {
		t.Fatal("expected combined:2 to replace question-only:2")
	}

	// Deleting the last answer moves it back to question-only.
	exec(`DELETE FROM answers WHERE id = ?`, 20)
	if err := svc.Handle(ctx, QAEvent{Type: EventAnswerDeleted, QuestionID: 2, AnswerID: 20}); err != nil {
		t.Fatalf("answer 20 deleted: %v", err)
	}
	if has("combined:2") {
		t.Error("combined:2 should be gone once the last answer is deleted")
	}
	if !has("question-only:2") {
		t.Fatal("expected question-only:2 after the last answer is deleted")
	}
	docs, _ = index.Get(ctx, []string{"question-only:2"})
	if docs[0].Metadata["answer_count"] != "0" || docs[0].Metadata["type"] != "question" {
		t.Errorf("unexpected metadata %v", docs[0].Metadata)
	}

	if err := svc.Handle(ctx, QAEvent{Type: EventQuestionDeleted, QuestionID: 1}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if has("combined:1") {
		t.Error("combined:1 should be removed")
	}
	if index.Len() != 1 {
		t.Errorf("expected only question-only:2 left, have %d entries", index.Len())
	}
}
