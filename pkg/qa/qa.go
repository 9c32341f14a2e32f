// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package qa defines the question/answer records owned by the Q&A
// application and the read-side contracts the indexer depends on.
package qa

import (
	"context"
	"errors"
	"time"

	"github.com/leseb/ragchat/pkg/provider"
)

// ErrNotFound is returned when a question or answer row does not exist.
var ErrNotFound = errors.New("not found")

// Question is a row of the questions table. Only IsSolved changes after
// creation.
type Question struct {
	ID        int64
	Title     string
	Content   string
	AuthorID  int64
	CreatedAt time.Time
	IsSolved  bool
}

// Answer is a row of the answers table. QuestionID is never reassigned.
// The vote score is not part of the row; see VoteScorer.
type Answer struct {
	ID         int64
	QuestionID int64
	Content    string
	AuthorID   int64
	IsAccepted bool
	CreatedAt  time.Time
}

// Reader gives read access to the relational Q&A state.
type Reader interface {
	// GetQuestion returns ErrNotFound (wrapped) when the question is absent.
	GetQuestion(ctx context.Context, id int64) (*Question, error)

	// GetAnswer returns ErrNotFound (wrapped) when the answer is absent.
	GetAnswer(ctx context.Context, id int64) (*Answer, error)

	// ListAnswers returns the answers of a question ordered by accepted
	// flag (accepted first), then creation time ascending.
	ListAnswers(ctx context.Context, questionID int64) ([]Answer, error)
}

// VoteScorer computes the current vote score of an answer. Failures are
// expected to be transient.
type VoteScorer interface {
	VoteScore(ctx context.Context, answerID int64) (int, error)
}

// Store is a relational backend that serves both reads and vote scores.
type Store interface {
	Reader
	VoteScorer
	Close() error
}

// Providers is the registry of Q&A store implementations.
//
//	import _ "github.com/leseb/ragchat/pkg/storage/sqlite"
//	import _ "github.com/leseb/ragchat/pkg/storage/postgres"
//	import _ "github.com/leseb/ragchat/pkg/storage/memory"
var Providers = provider.NewRegistry[Store]("qa_store")
