// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package vectorstore

import (
	"context"
	"sort"
	"time"

	"github.com/leseb/ragchat/pkg/provider"
)

// Providers is the registry of vector store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/leseb/ragchat/pkg/vectorstore/milvus"
//	import _ "github.com/leseb/ragchat/pkg/vectorstore/pgvector"
var Providers = provider.NewRegistry[Backend]("vector_store")

// Well-known metadata keys shared by every writer of the index.
const (
	MetaSource    = "source"
	MetaType      = "type"
	MetaIndexedAt = "indexed_at"
)

// Document is one entry of the index: a caller-assigned id, the embedding of
// Text, and flat string metadata.
type Document struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Source returns the document's source metadata value.
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// SearchResult is a single hit of a similarity search, best first.
type SearchResult struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float64
}

// SourceSummary aggregates the entries that share a source.
type SourceSummary struct {
	Source        string
	ChunksCount   int
	LastIndexedAt time.Time
}

// Backend is the interface for vector index backends. Writes are keyed by
// id with last-write-wins semantics; there is no transaction across calls.
type Backend interface {
	// Init provisions the index (collection, table) for vectors of the
	// given dimensionality. It is a no-op when the index already exists.
	Init(ctx context.Context, dimensions int) error

	// Add inserts documents, replacing any existing entry with the same id.
	Add(ctx context.Context, docs []Document) error

	// Delete removes the given ids. Absent ids are not an error.
	Delete(ctx context.Context, ids []string) error

	// Get returns the entries for the ids that exist, in no particular order.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Search returns the topK entries nearest to queryVector.
	Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error)

	// ListSources aggregates all entries by their source metadata.
	ListSources(ctx context.Context) ([]SourceSummary, error)

	// DeleteBySource removes every entry with the given source and returns
	// how many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error
}

// Summarize folds entries into per-source summaries sorted by source.
// Backends without server-side aggregation use it after a metadata scan.
func Summarize(metas []map[string]string) []SourceSummary {
	bySource := make(map[string]*SourceSummary)
	var order []string
	for _, m := range metas {
		src := m[MetaSource]
		if src == "" {
			continue
		}
		s, ok := bySource[src]
		if !ok {
			s = &SourceSummary{Source: src}
			bySource[src] = s
			order = append(order, src)
		}
		s.ChunksCount++
		if ts, err := time.Parse(time.RFC3339Nano, m[MetaIndexedAt]); err == nil && ts.After(s.LastIndexedAt) {
			s.LastIndexedAt = ts
		}
	}
	sort.Strings(order)
	out := make([]SourceSummary, 0, len(order))
	for _, src := range order {
		out = append(out, *bySource[src])
	}
	return out
}
