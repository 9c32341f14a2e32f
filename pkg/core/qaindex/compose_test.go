// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qaindex

import (
	"reflect"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/qa"
)

func TestRankAnswers(t *testing.T) {
	tests := []struct {
		name string
		in   []ScoredAnswer
		want []int64
	}{
		{
			name: "accepted beats score",
			in: []ScoredAnswer{
				{Answer: qa.Answer{ID: 1}, Score: 5},
				{Answer: qa.Answer{ID: 2, IsAccepted: true}, Score: 1},
				{Answer: qa.Answer{ID: 3}, Score: 5},
			},
			want: []int64{2, 1, 3},
		},
		{
			name: "ties keep input order",
			in: []ScoredAnswer{
				{Answer: qa.Answer{ID: 9}, Score: 0},
				{Answer: qa.Answer{ID: 4}, Score: 0},
				{Answer: qa.Answer{ID: 7}, Score: 0},
			},
			want: []int64{9, 4, 7},
		},
		{
			name: "negative scores sort last",
			in: []ScoredAnswer{
				{Answer: qa.Answer{ID: 1}, Score: -2},
				{Answer: qa.Answer{ID: 2}, Score: 0},
				{Answer: qa.Answer{ID: 3}, Score: 3},
			},
			want: []int64{3, 2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RankAnswers(tt.in)
			var got []int64
			for _, a := range tt.in {
				got = append(got, a.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeCombined_NegativeScoreHidden(t *testing.T) {
	q := &qa.Question{Title: "T", Content: "C"}
	text := ComposeCombined(q, []ScoredAnswer{{Answer: qa.Answer{Content: "x"}, Score: -1}}, DefaultAcceptedMarker)
	want := "Question: T\nDetails: C\n\nAnswers:\n\nAnswer 1 :\nx"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestCombinedMetadata(t *testing.T) {
	q := &qa.Question{
		ID:        7,
		AuthorID:  3,
		CreatedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		IsSolved:  false,
	}
	answers := []ScoredAnswer{
		{Answer: qa.Answer{ID: 1, IsAccepted: true}},
		{Answer: qa.Answer{ID: 2}},
	}
	indexedAt := time.Date(2025, 1, 2, 4, 4, 5, 0, time.FixedZone("CET", 3600))

	got := CombinedMetadata(q, answers, indexedAt)
	want := map[string]string{
		"source":              "qa/question/7",
		"type":                "qa_pair",
		"question_id":         "7",
		"author_id":           "3",
		"created_at":          "2024-06-01T09:30:00Z",
		"is_solved":           "False",
		"answer_count":        "2",
		"has_accepted_answer": "True",
		"indexed_at":          "2025-01-02T03:04:05Z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("metadata =\n%v\nwant\n%v", got, want)
	}
}

func TestQuestionMetadata(t *testing.T) {
	q := &qa.Question{ID: 8, AuthorID: 1, IsSolved: true, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	got := QuestionMetadata(q, fixedNow)
	if got["type"] != "question" || got["answer_count"] != "0" || got["is_solved"] != "True" {
		t.Errorf("unexpected metadata: %v", got)
	}
	if _, ok := got["has_accepted_answer"]; ok {
		t.Error("question metadata must not carry has_accepted_answer")
	}
}

func TestMetadata_SubSecondTimestamps(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	q := &qa.Question{ID: 8, CreatedAt: time.Date(2024, 6, 1, 9, 30, 0, 123456000, loc)}
	indexedAt := time.Date(2025, 1, 2, 3, 4, 5, 987654321, loc)

	got := QuestionMetadata(q, indexedAt)
	if got["created_at"] != "2024-06-01T09:30:00.123456+01:00" {
		t.Errorf("created_at = %q", got["created_at"])
	}
	if got["indexed_at"] != "2025-01-02T02:04:05.987654321Z" {
		t.Errorf("indexed_at = %q", got["indexed_at"])
	}
}

func TestIDs(t *testing.T) {
	if got := staleIDs(3, []int64{10, 11}); !reflect.DeepEqual(got, []string{"combined:3", "question-only:3", "answer:10", "answer:11"}) {
		t.Errorf("staleIDs = %v", got)
	}
	if got := SourceFor(3); got != "qa/question/3" {
		t.Errorf("SourceFor = %q", got)
	}
}
