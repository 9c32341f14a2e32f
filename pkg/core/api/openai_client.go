// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no chat model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIChatClient implements ChatClient using the official OpenAI Go SDK.
// Any OpenAI-compatible backend (vLLM, Ollama) works through baseURL.
type OpenAIChatClient struct {
	client openai.Client
	model  string
}

// NewOpenAIChatClient creates a chat client. baseURL and apiKey are
// optional for local backends.
func NewOpenAIChatClient(baseURL, apiKey, model string) *OpenAIChatClient {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIChatClient{
		client: openai.NewClient(openAIOptions(baseURL, apiKey)...),
		model:  model,
	}
}

// Model returns the configured model name.
func (c *OpenAIChatClient) Model() string {
	return c.model
}

func (c *OpenAIChatClient) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	msgs, err := convertMessages(messages)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: msgs,
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// convertMessages converts our Message types to OpenAI SDK message params
func convertMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return result, nil
}

func openAIOptions(baseURL, apiKey string) []option.RequestOption {
	opts := []option.RequestOption{}

	// Set custom base URL if provided (for Ollama, vLLM, etc.)
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	// Local backends don't require authentication
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey("dummy"))
	}
	return opts
}
