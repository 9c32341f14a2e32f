// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

func init() {
	Providers.Register("memory", func(_ context.Context, _ map[string]string) (Backend, error) {
		return NewMemoryBackend(), nil
	})
}

// compile-time check
var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend is an in-process Backend that keeps every entry in a map and
// answers searches by brute-force cosine similarity. It is the default when
// no external vector store is configured.
type MemoryBackend struct {
	mu         sync.RWMutex
	dimensions int
	docs       map[string]Document
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs: make(map[string]Document),
	}
}

// Init records the expected dimensionality; zero disables the check.
func (m *MemoryBackend) Init(_ context.Context, dimensions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dimensions
	return nil
}

// Add stores copies of the documents, overwriting existing ids.
func (m *MemoryBackend) Add(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("document id is required")
		}
		if m.dimensions > 0 && len(d.Vector) != m.dimensions {
			return fmt.Errorf("document %s: vector has %d dimensions, expected %d", d.ID, len(d.Vector), m.dimensions)
		}
	}
	for _, d := range docs {
		m.docs[d.ID] = cloneDocument(d)
	}
	return nil
}

// Delete removes the ids that exist.
func (m *MemoryBackend) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

// Get returns copies of the stored entries, sorted by id.
func (m *MemoryBackend) Get(_ context.Context, ids []string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out = append(out, cloneDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search ranks every entry by cosine similarity to queryVector.
func (m *MemoryBackend) Search(_ context.Context, queryVector []float32, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	results := make([]SearchResult, 0, len(m.docs))
	for _, d := range m.docs {
		results = append(results, SearchResult{
			ID:       d.ID,
			Text:     d.Text,
			Metadata: cloneMetadata(d.Metadata),
			Score:    cosine(queryVector, d.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListSources aggregates the stored entries by source.
func (m *MemoryBackend) ListSources(_ context.Context) ([]SourceSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metas := make([]map[string]string, 0, len(m.docs))
	for _, d := range m.docs {
		metas = append(metas, d.Metadata)
	}
	return Summarize(metas), nil
}

// DeleteBySource removes every entry whose source matches.
func (m *MemoryBackend) DeleteBySource(_ context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, d := range m.docs {
		if d.Source() == source {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryBackend) Close(_ context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cloneDocument(d Document) Document {
	vec := make([]float32, len(d.Vector))
	copy(vec, d.Vector)
	return Document{
		ID:       d.ID,
		Vector:   vec,
		Text:     d.Text,
		Metadata: cloneMetadata(d.Metadata),
	}
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
