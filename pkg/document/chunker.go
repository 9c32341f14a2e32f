// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package document

// DefaultChunkSize is the default chunk size in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between chunks in characters.
const DefaultChunkOverlap = 200

// ChunkText splits text into fixed-size windows of chunkSize characters,
// each starting chunkSize-overlap characters after the previous one.
// Characters are runes, so multi-byte text is never split mid-character.
// If chunkSize <= 0, DefaultChunkSize is used. If overlap < 0 or
// >= chunkSize, DefaultChunkOverlap is used (clamped to < chunkSize).
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := chunkSize - overlap
	if step <= 0 {
		step = 1
	}

	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
