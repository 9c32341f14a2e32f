// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/leseb/ragchat/pkg/observability/logging"
	"github.com/leseb/ragchat/pkg/qa"
)

// Q&A application event types.
const (
	EventQuestionCreated  = "question.created"
	EventQuestionUpdated  = "question.updated"
	EventQuestionDeleted  = "question.deleted"
	EventAnswerCreated    = "answer.created"
	EventAnswerUpdated    = "answer.updated"
	EventAnswerDeleted    = "answer.deleted"
	EventAnswerVoted      = "answer.voted"
	EventAnswerAccepted   = "answer.accepted"
	EventAnswerUnaccepted = "answer.unaccepted"
)

// QAEvent is a change notification from the Q&A application.
type QAEvent struct {
	Type       string `json:"type"`
	QuestionID int64  `json:"question_id,omitempty"`
	AnswerID   int64  `json:"answer_id,omitempty"`
}

// QAIndexer is the set of index maintenance operations the sync service
// drives. *qaindex.Indexer implements it.
type QAIndexer interface {
	ReindexQuestion(ctx context.Context, questionID int64) error
	IndexAnswer(ctx context.Context, a *qa.Answer) error
	UpdateAnswerMetadata(ctx context.Context, a *qa.Answer) error
	RemoveQuestion(ctx context.Context, questionID int64)
	RemoveAnswer(ctx context.Context, answerID int64) error
}

// QASyncService applies Q&A events to the index. Events touching the same
// question are applied one at a time in arrival order; events for
// different questions run concurrently.
type QASyncService struct {
	reader  qa.Reader
	indexer QAIndexer
	logger  *logging.Logger
	locks   *keyedMutex
}

// NewQASyncService creates a QASyncService. logger may be nil.
func NewQASyncService(reader qa.Reader, indexer QAIndexer, logger *logging.Logger) *QASyncService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &QASyncService{
		reader:  reader,
		indexer: indexer,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

// Handle applies ev. It returns ErrUnknownEvent or ErrInvalidEvent for
// malformed events, and the indexer's error when the index write fails.
func (s *QASyncService) Handle(ctx context.Context, ev QAEvent) error {
	switch ev.Type {
	case EventQuestionCreated, EventQuestionUpdated, EventQuestionDeleted:
		if ev.QuestionID <= 0 {
			return fmt.Errorf("%w: %s requires question_id", ErrInvalidEvent, ev.Type)
		}
	case EventAnswerCreated, EventAnswerUpdated, EventAnswerDeleted,
		EventAnswerVoted, EventAnswerAccepted, EventAnswerUnaccepted:
		if ev.AnswerID <= 0 {
			return fmt.Errorf("%w: %s requires answer_id", ErrInvalidEvent, ev.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	unlock := s.locks.Lock(s.lockKey(ctx, ev))
	defer unlock()

	s.logger.Debug("applying qa event", "type", ev.Type, "question_id", ev.QuestionID, "answer_id", ev.AnswerID)

	switch ev.Type {
	case EventQuestionCreated, EventQuestionUpdated:
		return s.indexer.ReindexQuestion(ctx, ev.QuestionID)

	case EventQuestionDeleted:
		s.indexer.RemoveQuestion(ctx, ev.QuestionID)
		return nil

	case EventAnswerDeleted:
		// The answer row is already gone, so only the parent id can locate
		// the combined document.
		if ev.QuestionID > 0 {
			return s.indexer.ReindexQuestion(ctx, ev.QuestionID)
		}
		return s.indexer.RemoveAnswer(ctx, ev.AnswerID)

	case EventAnswerCreated, EventAnswerUpdated:
		return s.withAnswer(ctx, ev, s.indexer.IndexAnswer)

	default:
		return s.withAnswer(ctx, ev, s.indexer.UpdateAnswerMetadata)
	}
}

// withAnswer loads the event's answer and passes it to apply. When the
// answer has disappeared in the meantime the parent is re-indexed instead,
// if known.
func (s *QASyncService) withAnswer(ctx context.Context, ev QAEvent, apply func(context.Context, *qa.Answer) error) error {
	a, err := s.reader.GetAnswer(ctx, ev.AnswerID)
	if errors.Is(err, qa.ErrNotFound) {
		s.logger.Warn("answer not found for event", "type", ev.Type, "answer_id", ev.AnswerID)
		if ev.QuestionID > 0 {
			return s.indexer.ReindexQuestion(ctx, ev.QuestionID)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load answer %d: %w", ev.AnswerID, err)
	}
	return apply(ctx, a)
}

// lockKey picks the question id that serializes ev. Answer events without
// a question id are resolved through the store; answers that cannot be
// resolved lock on their negated id.
func (s *QASyncService) lockKey(ctx context.Context, ev QAEvent) int64 {
	if ev.QuestionID > 0 {
		return ev.QuestionID
	}
	if a, err := s.reader.GetAnswer(ctx, ev.AnswerID); err == nil {
		return a.QuestionID
	}
	return -ev.AnswerID
}
