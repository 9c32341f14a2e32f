// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package vectorstoretest provides a shared conformance test suite for
// vectorstore.Backend implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package vectorstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/vectorstore"
)

// Dimensions is the vector size used by every sub-test.
const Dimensions = 4

// RunConformanceTests exercises a Backend implementation against the shared
// contract. newBackend is called once per sub-test and must return an
// isolated, initialized backend.
func RunConformanceTests(t *testing.T, newBackend func(t *testing.T) vectorstore.Backend) {
	t.Helper()

	t.Run("AddAndGet", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		doc := vectorstore.Document{
			ID:       "combined:1",
			Vector:   []float32{1, 0, 0, 0},
			Text:     "Question: hello",
			Metadata: map[string]string{"source": "qa/question/1", "type": "qa_pair"},
		}
		if err := b.Add(ctx, []vectorstore.Document{doc}); err != nil {
			t.Fatalf("Add: %v", err)
		}

		got, err := b.Get(ctx, []string{"combined:1", "missing"})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 document, got %d", len(got))
		}
		if got[0].Text != doc.Text || got[0].Metadata["type"] != "qa_pair" {
			t.Errorf("unexpected document: %+v", got[0])
		}
	})

	t.Run("AddOverwrites", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		first := vectorstore.Document{ID: "x", Vector: []float32{1, 0, 0, 0}, Text: "first", Metadata: map[string]string{"source": "s"}}
		second := vectorstore.Document{ID: "x", Vector: []float32{0, 1, 0, 0}, Text: "second", Metadata: map[string]string{"source": "s"}}
		if err := b.Add(ctx, []vectorstore.Document{first}); err != nil {
			t.Fatalf("Add first: %v", err)
		}
		if err := b.Add(ctx, []vectorstore.Document{second}); err != nil {
			t.Fatalf("Add second: %v", err)
		}

		got, err := b.Get(ctx, []string{"x"})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 1 || got[0].Text != "second" {
			t.Errorf("expected single overwritten entry, got %+v", got)
		}
	})

	t.Run("DeleteAbsentIsNotAnError", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		if err := b.Delete(ctx, []string{"never-written", "question-only:9"}); err != nil {
			t.Fatalf("Delete of absent ids: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		docs := []vectorstore.Document{
			{ID: "a", Vector: []float32{1, 0, 0, 0}, Text: "a", Metadata: map[string]string{"source": "s"}},
			{ID: "b", Vector: []float32{0, 1, 0, 0}, Text: "b", Metadata: map[string]string{"source": "s"}},
		}
		if err := b.Add(ctx, docs); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := b.Delete(ctx, []string{"a"}); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		got, err := b.Get(ctx, []string{"a", "b"})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 1 || got[0].ID != "b" {
			t.Errorf("expected only b to remain, got %+v", got)
		}
	})

	t.Run("SearchOrdersBySimilarity", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		docs := []vectorstore.Document{
			{ID: "near", Vector: []float32{1, 0.1, 0, 0}, Text: "near", Metadata: map[string]string{"source": "s"}},
			{ID: "far", Vector: []float32{0, 0, 1, 0}, Text: "far", Metadata: map[string]string{"source": "s"}},
			{ID: "mid", Vector: []float32{1, 1, 0, 0}, Text: "mid", Metadata: map[string]string{"source": "s"}},
		}
		if err := b.Add(ctx, docs); err != nil {
			t.Fatalf("Add: %v", err)
		}

		results, err := b.Search(ctx, []float32{1, 0, 0, 0}, 2)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != "near" || results[1].ID != "mid" {
			t.Errorf("unexpected order: %s, %s", results[0].ID, results[1].ID)
		}
		if results[0].Metadata["source"] != "s" {
			t.Errorf("expected metadata on search results, got %v", results[0].Metadata)
		}
	})

	t.Run("SourcesListAndDelete", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close(context.Background())
		ctx := context.Background()

		early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		late := early.Add(time.Hour)
		docs := []vectorstore.Document{
			{ID: "g1", Vector: []float32{1, 0, 0, 0}, Text: "1", Metadata: map[string]string{"source": "guide.pdf", "indexed_at": early.Format(time.RFC3339Nano)}},
			{ID: "g2", Vector: []float32{0, 1, 0, 0}, Text: "2", Metadata: map[string]string{"source": "guide.pdf", "indexed_at": late.Format(time.RFC3339Nano)}},
			{ID: "n1", Vector: []float32{0, 0, 1, 0}, Text: "3", Metadata: map[string]string{"source": "notes.md", "indexed_at": early.Format(time.RFC3339Nano)}},
		}
		if err := b.Add(ctx, docs); err != nil {
			t.Fatalf("Add: %v", err)
		}

		sources, err := b.ListSources(ctx)
		if err != nil {
			t.Fatalf("ListSources: %v", err)
		}
		if len(sources) != 2 {
			t.Fatalf("expected 2 sources, got %+v", sources)
		}
		if sources[0].Source != "guide.pdf" || sources[0].ChunksCount != 2 || !sources[0].LastIndexedAt.Equal(late) {
			t.Errorf("unexpected guide.pdf summary: %+v", sources[0])
		}

		n, err := b.DeleteBySource(ctx, "guide.pdf")
		if err != nil {
			t.Fatalf("DeleteBySource: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}
		got, err := b.Get(ctx, []string{"g1", "g2", "n1"})
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got) != 1 || got[0].ID != "n1" {
			t.Errorf("expected only n1 to remain, got %+v", got)
		}
	})
}
