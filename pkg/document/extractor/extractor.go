// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package extractor turns uploaded file bytes into plain text for chunking.
package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for extensions with no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrNotImplemented is returned for accepted formats that cannot be
	// indexed yet (.docx).
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidEncoding is returned when a text file is not UTF-8.
	ErrInvalidEncoding = errors.New("file encoding error, ensure the file is UTF-8 encoded")

	// ErrNoText is returned when a PDF yields no text at all.
	ErrNoText = errors.New("no text content could be extracted")
)

// ExtractText extracts plain text from file content based on the file
// extension.
func ExtractText(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md":
		return extractText(content)
	case ".pdf":
		return extractPDF(content)
	case ".html", ".htm":
		return extractHTML(content)
	case ".csv":
		return extractCSV(content)
	case ".json":
		return extractJSON(content)
	case ".jsonl":
		return extractJSONL(content)
	case ".docx":
		return "", fmt.Errorf("DOCX support: %w, convert to .txt or .md", ErrNotImplemented)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
