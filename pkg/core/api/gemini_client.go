// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini model defaults.
const (
	DefaultGeminiModel          = "gemini-1.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiFallbackModels are tried in order when the configured model is not
// available to the API key.
var GeminiFallbackModels = []string{"gemini-1.5-flash-latest", "gemini-pro", "gemini-1.5-pro"}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)

// GeminiChatClient implements ChatClient against the Gemini API.
type GeminiChatClient struct {
	model     string
	fallbacks []string
	generate  generateFunc
}

// NewGeminiChatClient creates a Gemini chat client. A leading "models/" in
// the model name is accepted and stripped.
func NewGeminiChatClient(ctx context.Context, apiKey, model string) (*GeminiChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GOOGLE_API_KEY)", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	gen := func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGeminiChatClient(model, gen), nil
}

func newGeminiChatClient(model string, gen generateFunc) *GeminiChatClient {
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiChatClient{model: model, fallbacks: GeminiFallbackModels, generate: gen}
}

// Model returns the configured model name.
func (c *GeminiChatClient) Model() string {
	return c.model
}

func (c *GeminiChatClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	contents, cfg, err := geminiRequest(messages, opts)
	if err != nil {
		return "", err
	}

	tried := []string{c.model}
	text, err := c.generate(ctx, c.model, contents, cfg)
	if err == nil {
		return text, nil
	}
	if !isModelUnavailable(err) {
		return "", fmt.Errorf("gemini generate (%s): %w", c.model, err)
	}

	for _, fb := range c.fallbacks {
		if fb == c.model {
			continue
		}
		tried = append(tried, fb)
		text, err = c.generate(ctx, fb, contents, cfg)
		if err == nil {
			return text, nil
		}
		if !isModelUnavailable(err) {
			return "", fmt.Errorf("gemini generate (%s): %w", fb, err)
		}
	}
	return "", fmt.Errorf("no available gemini model, tried %s: %w", strings.Join(tried, ", "), err)
}

func geminiRequest(messages []Message, opts GenerateOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg, nil
}

// isModelUnavailable reports whether err means the model name was rejected
// rather than the request itself failing.
func isModelUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not supported")
}

// GeminiEmbeddingClient implements EmbeddingClient against the Gemini API.
type GeminiEmbeddingClient struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbeddingClient creates a Gemini embedding client.
func NewGeminiEmbeddingClient(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embeddings: %w (set GOOGLE_API_KEY)", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	return &GeminiEmbeddingClient{client: client, model: model, dimensions: dimensions}, nil
}

// Embed generates embeddings for the given text inputs.
func (c *GeminiEmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(inputs))
	for _, in := range inputs {
		contents = append(contents, genai.NewContentFromText(in, genai.RoleUser))
	}

	var cfg *genai.EmbedContentConfig
	if c.dimensions > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(c.dimensions))}
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Embeddings), len(inputs))
	}

	results := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		results[i] = e.Values
	}
	return results, nil
}
