// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package rag answers user questions from indexed documents and Q&A pairs:
// it embeds the query, retrieves the nearest index entries, formats them
// into a prompt and asks the configured chat model.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

// Pipeline defaults.
const (
	DefaultTopK        = 3
	DefaultTemperature = 0.7
)

// ErrEmptyQuery is returned by Answer for a blank question.
var ErrEmptyQuery = errors.New("query is required")

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, queryVector []float32, topK int) ([]vectorstore.SearchResult, error)
}

// Config tunes the pipeline. Temperature is passed through as is; use
// DefaultTemperature for the usual setting.
type Config struct {
	TopK             int
	Temperature      float64
	MaxTokens        int
	UseSystemMessage bool
}

// Result is the outcome of Answer.
type Result struct {
	Response string
	Sources  []string
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	index    Searcher
	embedder api.EmbeddingClient
	llm      api.ChatClient
	cfg      Config
}

// New creates a Pipeline. A non-positive TopK selects DefaultTopK.
func New(index Searcher, embedder api.EmbeddingClient, llm api.ChatClient, cfg Config) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Pipeline{index: index, embedder: embedder, llm: llm, cfg: cfg}
}

// Retrieve embeds query and returns the topK nearest index entries, best
// first. A non-positive topK selects the configured default.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = p.cfg.TopK
	}
	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected 1", len(vecs))
	}
	results, err := p.index.Search(ctx, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Answer runs the full pipeline for query.
func (p *Pipeline) Answer(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	chunks, err := p.Retrieve(ctx, query, p.cfg.TopK)
	if err != nil {
		return nil, err
	}

	temp := p.cfg.Temperature
	resp, err := p.llm.Generate(ctx, FormatPrompt(query, chunks, p.cfg.UseSystemMessage), api.GenerateOptions{
		Temperature: &temp,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Result{Response: resp, Sources: Sources(chunks)}, nil
}

// Sources returns the distinct source values of chunks in retrieval order.
// Entries without a source are reported as "unknown".
func Sources(chunks []vectorstore.SearchResult) []string {
	seen := make(map[string]bool, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		src := c.Metadata[vectorstore.MetaSource]
		if src == "" {
			src = "unknown"
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
