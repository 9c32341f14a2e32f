// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import "strconv"

// CombinedID is the index id of a question indexed with its answers.
func CombinedID(questionID int64) string {
	return "combined:" + strconv.FormatInt(questionID, 10)
}

// QuestionOnlyID is the index id of a question indexed without answers.
func QuestionOnlyID(questionID int64) string {
	return "question-only:" + strconv.FormatInt(questionID, 10)
}

// LegacyAnswerID is the id once used for per-answer entries. Nothing writes
// it anymore; it is only deleted.
func LegacyAnswerID(answerID int64) string {
	return "answer:" + strconv.FormatInt(answerID, 10)
}

// SourceFor is the metadata source shared by every variant of a question.
func SourceFor(questionID int64) string {
	return "qa/question/" + strconv.FormatInt(questionID, 10)
}

// staleIDs lists every id that may hold a previous rendition of the
// question, including legacy per-answer ids.
func staleIDs(questionID int64, answerIDs []int64) []string {
	ids := make([]string, 0, 2+len(answerIDs))
	ids = append(ids, CombinedID(questionID), QuestionOnlyID(questionID))
	for _, id := range answerIDs {
		ids = append(ids, LegacyAnswerID(id))
	}
	return ids
}
