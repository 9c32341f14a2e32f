// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/leseb/ragchat/pkg/provider"
)

// ErrMissingAPIKey is returned when a hosted provider is configured without
// credentials.
var ErrMissingAPIKey = errors.New("api key is required")

// GenerateOptions tunes a single generation call. Zero values leave the
// provider default in place.
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
}

// ChatClient produces a completion for a list of messages.
type ChatClient interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
}

// EmbeddingClient generates vector embeddings from text inputs.
type EmbeddingClient interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// ChatProviders and EmbeddingProviders select model backends by name.
// Recognized params: api_key, base_url, model and, for embeddings,
// dimensions.
var (
	ChatProviders      = provider.NewRegistry[ChatClient]("llm")
	EmbeddingProviders = provider.NewRegistry[EmbeddingClient]("embedding")
)

func init() {
	ChatProviders.Register("openai", func(_ context.Context, p map[string]string) (ChatClient, error) {
		if p["api_key"] == "" && p["base_url"] == "" {
			return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrMissingAPIKey)
		}
		return NewOpenAIChatClient(p["base_url"], p["api_key"], p["model"]), nil
	})
	ChatProviders.Register("gemini", func(ctx context.Context, p map[string]string) (ChatClient, error) {
		return NewGeminiChatClient(ctx, p["api_key"], p["model"])
	})
	ChatProviders.Register("mock", func(_ context.Context, _ map[string]string) (ChatClient, error) {
		return NewMockChatClient(), nil
	})

	EmbeddingProviders.Register("openai", func(_ context.Context, p map[string]string) (EmbeddingClient, error) {
		if p["api_key"] == "" && p["base_url"] == "" {
			return nil, fmt.Errorf("openai embeddings: %w (set OPENAI_API_KEY)", ErrMissingAPIKey)
		}
		return NewOpenAIEmbeddingClient(p["base_url"], p["api_key"], p["model"], atoi(p["dimensions"])), nil
	})
	EmbeddingProviders.Register("gemini", func(ctx context.Context, p map[string]string) (EmbeddingClient, error) {
		return NewGeminiEmbeddingClient(ctx, p["api_key"], p["model"], atoi(p["dimensions"]))
	})
	EmbeddingProviders.Register("mock", func(_ context.Context, p map[string]string) (EmbeddingClient, error) {
		return NewMockEmbeddingClient(atoi(p["dimensions"])), nil
	})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
