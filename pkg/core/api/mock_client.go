// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultMockDimensions is the vector size of MockEmbeddingClient when none
// is configured.
const DefaultMockDimensions = 64

// MockChatClient is a mock implementation for testing.
// It generates predictable responses based on the input.
type MockChatClient struct{}

// NewMockChatClient creates a new mock client
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{}
}

func (m *MockChatClient) Generate(ctx context.Context, messages []Message, _ GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userMessage := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			userMessage = messages[i].Content
			break
		}
	}
	return fmt.Sprintf("Mock response to: %s", userMessage), nil
}

// MockEmbeddingClient hashes lowercase word tokens into a fixed-size,
// L2-normalized bag-of-words vector. Texts sharing words land close together
// under cosine similarity, which is enough for local runs and tests.
type MockEmbeddingClient struct {
	dimensions int
}

// NewMockEmbeddingClient creates a mock embedder. dimensions <= 0 selects
// DefaultMockDimensions.
func NewMockEmbeddingClient(dimensions int) *MockEmbeddingClient {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}
	return &MockEmbeddingClient{dimensions: dimensions}
}

// Dimensions returns the vector size.
func (m *MockEmbeddingClient) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = m.vector(in)
	}
	return out, nil
}

func (m *MockEmbeddingClient) vector(text string) []float32 {
	vec := make([]float32, m.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
