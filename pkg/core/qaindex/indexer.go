// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package qaindex keeps one derived document per question in the vector
// index: the question together with its answers ranked by acceptance and
// vote score. Every mutation recomputes the document from relational state
// and replaces whatever was indexed for the question before.
//
// Failures are split in two tiers. Anything that prevents producing a
// document (listing answers, embedding, adding) is returned to the caller.
// Score lookups and deletes are best-effort: their failures go to the Sink
// and the operation carries on.
//
// The Indexer holds no per-question state. Calls for different questions
// may run concurrently; calls for the same question must be serialized by
// the caller if ordering matters.
package qaindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

// Index is the subset of vectorstore.Backend the indexer writes to.
// Delete must treat absent ids as success.
type Index interface {
	Add(ctx context.Context, docs []vectorstore.Document) error
	Delete(ctx context.Context, ids []string) error
}

// Embedder turns texts into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithSink sets the diagnostic sink. The default discards events.
func WithSink(s Sink) Option {
	return func(ix *Indexer) {
		if s != nil {
			ix.sink = s
		}
	}
}

// WithClock sets the time source for indexed_at.
func WithClock(now func() time.Time) Option {
	return func(ix *Indexer) {
		if now != nil {
			ix.now = now
		}
	}
}

// WithAcceptedMarker overrides DefaultAcceptedMarker.
func WithAcceptedMarker(marker string) Option {
	return func(ix *Indexer) {
		if marker != "" {
			ix.acceptedMarker = marker
		}
	}
}

// Indexer synchronizes Q&A rows into the vector index.
type Indexer struct {
	reader         qa.Reader
	scorer         qa.VoteScorer
	index          Index
	embedder       Embedder
	sink           Sink
	now            func() time.Time
	acceptedMarker string
}

// New creates an Indexer. All collaborators are required.
func New(reader qa.Reader, scorer qa.VoteScorer, index Index, embedder Embedder, opts ...Option) *Indexer {
	ix := &Indexer{
		reader:         reader,
		scorer:         scorer,
		index:          index,
		embedder:       embedder,
		sink:           nopSink{},
		now:            time.Now,
		acceptedMarker: DefaultAcceptedMarker,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// IndexQuestion indexes a question that has no answers under
// QuestionOnlyID, replacing any combined document.
func (ix *Indexer) IndexQuestion(ctx context.Context, q *qa.Question) error {
	id := QuestionOnlyID(q.ID)
	text := ComposeQuestion(q)

	vec, err := ix.embedOne(ctx, text)
	if err != nil {
		return ix.writeFailed(ctx, q.ID, &IndexWriteError{ID: id, Op: "embed", Err: err})
	}

	ix.deleteBestEffort(ctx, q.ID, []string{CombinedID(q.ID), id})

	doc := vectorstore.Document{
		ID:       id,
		Vector:   vec,
		Text:     text,
		Metadata: QuestionMetadata(q, ix.now()),
	}
	if err := ix.index.Add(ctx, []vectorstore.Document{doc}); err != nil {
		return ix.writeFailed(ctx, q.ID, &IndexWriteError{ID: id, Op: "add", Err: err})
	}

	ix.sink.Report(ctx, Event{Kind: KindIndexed, QuestionID: q.ID})
	return nil
}

// IndexQuestionWithAnswers indexes the question and all its current answers
// as a single document under CombinedID. Stale ids for the question,
// including legacy per-answer ids, are deleted before the write.
func (ix *Indexer) IndexQuestionWithAnswers(ctx context.Context, q *qa.Question) error {
	answers, err := ix.reader.ListAnswers(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list answers for question %d: %w", q.ID, err)
	}

	ranked := make([]ScoredAnswer, len(answers))
	answerIDs := make([]int64, len(answers))
	for i, a := range answers {
		ranked[i] = ScoredAnswer{Answer: a, Score: ix.score(ctx, a)}
		answerIDs[i] = a.ID
	}
	RankAnswers(ranked)

	id := CombinedID(q.ID)
	text := ComposeCombined(q, ranked, ix.acceptedMarker)

	vec, err := ix.embedOne(ctx, text)
	if err != nil {
		return ix.writeFailed(ctx, q.ID, &IndexWriteError{ID: id, Op: "embed", Err: err})
	}

	ix.deleteBestEffort(ctx, q.ID, staleIDs(q.ID, answerIDs))

	doc := vectorstore.Document{
		ID:       id,
		Vector:   vec,
		Text:     text,
		Metadata: CombinedMetadata(q, ranked, ix.now()),
	}
	if err := ix.index.Add(ctx, []vectorstore.Document{doc}); err != nil {
		return ix.writeFailed(ctx, q.ID, &IndexWriteError{ID: id, Op: "add", Err: err})
	}

	ix.sink.Report(ctx, Event{Kind: KindIndexed, QuestionID: q.ID})
	return nil
}

// IndexAnswer re-reads the answer's question and re-indexes it with all its
// answers. A missing question is reported and ignored since events may
// arrive out of order.
func (ix *Indexer) IndexAnswer(ctx context.Context, a *qa.Answer) error {
	q, err := ix.reader.GetQuestion(ctx, a.QuestionID)
	if errors.Is(err, qa.ErrNotFound) {
		ix.sink.Report(ctx, Event{
			Kind:       KindMissingParent,
			QuestionID: a.QuestionID,
			AnswerID:   a.ID,
			Err:        &MissingParentError{QuestionID: a.QuestionID, AnswerID: a.ID},
		})
		return nil
	}
	if err != nil {
		return err
	}
	return ix.IndexQuestionWithAnswers(ctx, q)
}

// UpdateAnswerMetadata re-indexes after a vote or acceptance change. It has
// the same effect as IndexAnswer.
func (ix *Indexer) UpdateAnswerMetadata(ctx context.Context, a *qa.Answer) error {
	return ix.IndexAnswer(ctx, a)
}

// ReindexQuestion loads a question and indexes it through the answers path
// when it has answers, or as question-only when it has none. A missing
// question is a no-op.
func (ix *Indexer) ReindexQuestion(ctx context.Context, questionID int64) error {
	q, err := ix.reader.GetQuestion(ctx, questionID)
	if errors.Is(err, qa.ErrNotFound) {
		ix.sink.Report(ctx, Event{Kind: KindMissingParent, QuestionID: questionID, Err: err})
		return nil
	}
	if err != nil {
		return err
	}

	answers, err := ix.reader.ListAnswers(ctx, questionID)
	if err != nil {
		return fmt.Errorf("list answers for question %d: %w", questionID, err)
	}
	if len(answers) == 0 {
		return ix.IndexQuestion(ctx, q)
	}
	return ix.IndexQuestionWithAnswers(ctx, q)
}

// RemoveQuestion deletes every id the question may be indexed under. It
// never fails: a failure to list answers only narrows the delete to the two
// question ids, and delete failures are reported.
func (ix *Indexer) RemoveQuestion(ctx context.Context, questionID int64) {
	var answerIDs []int64
	answers, err := ix.reader.ListAnswers(ctx, questionID)
	if err != nil {
		ix.sink.Report(ctx, Event{
			Kind:       KindIndexDeleteFailed,
			QuestionID: questionID,
			Err:        fmt.Errorf("list answers: %w", err),
		})
	}
	for _, a := range answers {
		answerIDs = append(answerIDs, a.ID)
	}

	if ix.deleteBestEffort(ctx, questionID, staleIDs(questionID, answerIDs)) {
		ix.sink.Report(ctx, Event{Kind: KindRemoved, QuestionID: questionID})
	}
}

// RemoveAnswer re-indexes the question of an answer so its remaining answers
// are reflected. If the answer or its question is already gone this is a
// no-op.
func (ix *Indexer) RemoveAnswer(ctx context.Context, answerID int64) error {
	a, err := ix.reader.GetAnswer(ctx, answerID)
	if errors.Is(err, qa.ErrNotFound) {
		ix.sink.Report(ctx, Event{Kind: KindMissingAnswer, AnswerID: answerID, Err: err})
		return nil
	}
	if err != nil {
		return err
	}
	return ix.IndexAnswer(ctx, a)
}

// score returns the answer's vote score, or 0 when the lookup fails.
func (ix *Indexer) score(ctx context.Context, a qa.Answer) int {
	s, err := ix.scorer.VoteScore(ctx, a.ID)
	if err != nil {
		ix.sink.Report(ctx, Event{
			Kind:       KindScoreLookupFailed,
			QuestionID: a.QuestionID,
			AnswerID:   a.ID,
			Err:        &ScoreLookupError{AnswerID: a.ID, Err: err},
		})
		return 0
	}
	return s
}

func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// deleteBestEffort reports whether the delete succeeded.
func (ix *Indexer) deleteBestEffort(ctx context.Context, questionID int64, ids []string) bool {
	if err := ix.index.Delete(ctx, ids); err != nil {
		ix.sink.Report(ctx, Event{
			Kind:       KindIndexDeleteFailed,
			QuestionID: questionID,
			Err:        &IndexDeleteError{IDs: ids, Err: err},
		})
		return false
	}
	return true
}

func (ix *Indexer) writeFailed(ctx context.Context, questionID int64, err *IndexWriteError) error {
	ix.sink.Report(ctx, Event{Kind: KindIndexWriteFailed, QuestionID: questionID, Err: err})
	return err
}
