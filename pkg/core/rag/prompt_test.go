// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package rag

import (
	"strings"
	"testing"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

func TestFormatContext(t *testing.T) {
	chunks := []vectorstore.SearchResult{
		{Text: "qa", Metadata: map[string]string{"type": "qa_pair", "source": "qa/question/1"}},
		{Text: "q", Metadata: map[string]string{"type": "question"}},
		{Text: "a", Metadata: map[string]string{"type": "answer"}},
		{Text: "doc", Metadata: map[string]string{"source": "notes.md"}},
		{Text: "orphan", Metadata: nil},
	}

	want := strings.Join([]string{
		"[Q&A Information]\nqa",
		"[Question]\nq",
		"[Answer]\na",
		"[Document: notes.md]\ndoc",
		"[Document: unknown]\norphan",
	}, "\n\n---\n\n")

	if got := FormatContext(chunks); got != want {
		t.Errorf("FormatContext() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatPrompt(t *testing.T) {
	chunks := []vectorstore.SearchResult{{Text: "doc", Metadata: map[string]string{"source": "x"}}}

	tests := []struct {
		name      string
		system    bool
		wantRoles []string
		wantTail  string
	}{
		{
			name:      "inline instructions",
			wantRoles: []string{api.RoleUser},
			wantTail:  "Context:\n[Document: x]\ndoc\n\nUser Question: why?\n\nAnswer based on the context:",
		},
		{
			name:      "system message",
			system:    true,
			wantRoles: []string{api.RoleSystem, api.RoleUser},
			wantTail:  "Context:\n[Document: x]\ndoc\n\nUser Question: why?\n\nProvide a helpful answer based on the context above:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := FormatPrompt("why?", chunks, tt.system)
			if len(msgs) != len(tt.wantRoles) {
				t.Fatalf("got %d messages, want %d", len(msgs), len(tt.wantRoles))
			}
			for i, r := range tt.wantRoles {
				if msgs[i].Role != r {
					t.Errorf("message %d role = %q, want %q", i, msgs[i].Role, r)
				}
			}
			last := msgs[len(msgs)-1].Content
			if !strings.HasSuffix(last, tt.wantTail) {
				t.Errorf("unexpected user message:\n%s", last)
			}
			if tt.system && !strings.Contains(msgs[0].Content, "I don't have that information in my knowledge base.") {
				t.Error("system message missing fallback instruction")
			}
			if !tt.system && !strings.HasPrefix(last, "You are a helpful assistant.") {
				t.Error("inline prompt should start with the instructions")
			}
		})
	}
}
