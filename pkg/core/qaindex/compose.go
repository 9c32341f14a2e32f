// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

// DefaultAcceptedMarker tags the accepted answer in composed text.
const DefaultAcceptedMarker = "✓ (Accepted)"

// Metadata keys written on Q&A documents, in addition to
// vectorstore.MetaSource, vectorstore.MetaType and vectorstore.MetaIndexedAt.
const (
	MetaQuestionID        = "question_id"
	MetaAuthorID          = "author_id"
	MetaCreatedAt         = "created_at"
	MetaIsSolved          = "is_solved"
	MetaAnswerCount       = "answer_count"
	MetaHasAcceptedAnswer = "has_accepted_answer"
)

// Values of vectorstore.MetaType.
const (
	TypeQAPair   = "qa_pair"
	TypeQuestion = "question"
)

// ScoredAnswer is an answer with the vote score used to rank it.
type ScoredAnswer struct {
	qa.Answer
	Score int
}

// RankAnswers orders answers accepted first, then by score descending.
// Equal keys keep their input order.
func RankAnswers(answers []ScoredAnswer) {
	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].IsAccepted != answers[j].IsAccepted {
			return answers[i].IsAccepted
		}
		return answers[i].Score > answers[j].Score
	})
}

// ComposeCombined renders a question and its ranked answers.
func ComposeCombined(q *qa.Question, answers []ScoredAnswer, acceptedMarker string) string {
	parts := []string{
		"Question: " + q.Title,
		"Details: " + q.Content,
	}

	if len(answers) == 0 {
		parts = append(parts, "\n(No answers yet)")
		return strings.Join(parts, "\n")
	}

	parts = append(parts, "\nAnswers:")
	for i, a := range answers {
		marker := ""
		if a.IsAccepted {
			marker = acceptedMarker
		}
		score := ""
		if a.Score > 0 {
			score = fmt.Sprintf(" (Score: %d)", a.Score)
		}
		parts = append(parts, fmt.Sprintf("\nAnswer %d %s%s:\n%s", i+1, marker, score, a.Content))
	}
	return strings.Join(parts, "\n")
}

// ComposeQuestion renders a question on its own.
func ComposeQuestion(q *qa.Question) string {
	return "Question: " + q.Title + "\n\n" + q.Content
}

// titleBool formats booleans the way existing index entries store them.
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func baseMetadata(q *qa.Question, docType string, indexedAt time.Time) map[string]string {
	return map[string]string{
		vectorstore.MetaSource:    SourceFor(q.ID),
		vectorstore.MetaType:      docType,
		MetaQuestionID:            strconv.FormatInt(q.ID, 10),
		MetaAuthorID:              strconv.FormatInt(q.AuthorID, 10),
		MetaCreatedAt:             q.CreatedAt.Format(time.RFC3339Nano),
		MetaIsSolved:              titleBool(q.IsSolved),
		vectorstore.MetaIndexedAt: indexedAt.UTC().Format(time.RFC3339Nano),
	}
}

// CombinedMetadata describes a combined document. has_accepted_answer is
// derived from the answers and is_solved from the question; the two are
// not reconciled.
func CombinedMetadata(q *qa.Question, answers []ScoredAnswer, indexedAt time.Time) map[string]string {
	accepted := false
	for _, a := range answers {
		if a.IsAccepted {
			accepted = true
			break
		}
	}
	m := baseMetadata(q, TypeQAPair, indexedAt)
	m[MetaAnswerCount] = strconv.Itoa(len(answers))
	m[MetaHasAcceptedAnswer] = titleBool(accepted)
	return m
}

// QuestionMetadata describes a question-only document.
func QuestionMetadata(q *qa.Question, indexedAt time.Time) map[string]string {
	m := baseMetadata(q, TypeQuestion, indexedAt)
	m[MetaAnswerCount] = "0"
	return m
}
