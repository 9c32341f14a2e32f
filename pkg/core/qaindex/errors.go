// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import (
	"fmt"
	"strings"
)

// ScoreLookupError is a failed vote score lookup. The indexer counts the
// answer's score as 0 and reports the error; it is never returned.
type ScoreLookupError struct {
	AnswerID int64
	Err      error
}

func (e *ScoreLookupError) Error() string {
	return fmt.Sprintf("vote score lookup for answer %d: %v", e.AnswerID, e.Err)
}

func (e *ScoreLookupError) Unwrap() error { return e.Err }

// MissingParentError is reported when an answer's question no longer
// exists. The operation becomes a no-op.
type MissingParentError struct {
	QuestionID int64
	AnswerID   int64
}

func (e *MissingParentError) Error() string {
	return fmt.Sprintf("question %d of answer %d not found", e.QuestionID, e.AnswerID)
}

// IndexWriteError means no document could be produced or stored for a
// question. It is the only error the indexer returns for index writes.
type IndexWriteError struct {
	ID  string
	Op  string // "embed" or "add"
	Err error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// IndexDeleteError is a failed best-effort delete. It is reported and
// swallowed.
type IndexDeleteError struct {
	IDs []string
	Err error
}

func (e *IndexDeleteError) Error() string {
	return fmt.Sprintf("index delete [%s]: %v", strings.Join(e.IDs, ", "), e.Err)
}

func (e *IndexDeleteError) Unwrap() error { return e.Err }
