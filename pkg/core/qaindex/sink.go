// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import (
	"context"
	"log/slog"

	"github.com/leseb/ragchat/pkg/observability/logging"
)

// Kind classifies a diagnostic event.
type Kind string

const (
	KindScoreLookupFailed Kind = "score_lookup_failed"
	KindMissingParent     Kind = "missing_parent"
	KindMissingAnswer     Kind = "missing_answer"
	KindIndexDeleteFailed Kind = "index_delete_failed"
	KindIndexWriteFailed  Kind = "index_write_failed"
	KindIndexed           Kind = "indexed"
	KindRemoved           Kind = "removed"
)

// Event is a diagnostic emitted by the indexer. IDs are zero when they do
// not apply.
type Event struct {
	Kind       Kind
	QuestionID int64
	AnswerID   int64
	Err        error
}

// Sink receives diagnostics. Report must not block for long; it runs
// inline with indexing.
type Sink interface {
	Report(ctx context.Context, ev Event)
}

type nopSink struct{}

func (nopSink) Report(context.Context, Event) {}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Report(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Report(ctx, ev)
		}
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *logging.Logger
}

func (s LogSink) Report(ctx context.Context, ev Event) {
	if s.Logger == nil {
		return
	}
	attrs := []any{"kind", string(ev.Kind)}
	if ev.QuestionID != 0 {
		attrs = append(attrs, "question_id", ev.QuestionID)
	}
	if ev.AnswerID != 0 {
		attrs = append(attrs, "answer_id", ev.AnswerID)
	}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err)
	}

	var level slog.Level
	switch ev.Kind {
	case KindIndexed, KindRemoved:
		level = slog.LevelDebug
	case KindIndexWriteFailed:
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	s.Logger.Log(ctx, level, "qa index event", attrs...)
}
