// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package document holds the file-level helpers used when ingesting
// uploads: validation, object key naming and chunking.
package document

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxFileSizeMB is the upload size limit when none is configured.
const DefaultMaxFileSizeMB = 10

// AllowedExtensions lists the file types accepted for upload.
var AllowedExtensions = []string{".txt", ".md", ".pdf", ".docx", ".html", ".htm", ".csv", ".json", ".jsonl"}

// ErrInvalidFile is wrapped by every validation failure.
var ErrInvalidFile = errors.New("invalid file")

// Ext returns the lower-cased extension of filename, including the dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Validate checks the filename, extension and size of an upload. maxSizeMB
// <= 0 selects DefaultMaxFileSizeMB.
func Validate(filename string, size int64, maxSizeMB int) error {
	if filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidFile)
	}
	ext := Ext(filename)
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: file type not supported, allowed types: %s",
			ErrInvalidFile, strings.Join(AllowedExtensions, ", "))
	}

	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxFileSizeMB
	}
	if size > int64(maxSizeMB)*1024*1024 {
		return fmt.Errorf("%w: file size exceeds maximum allowed size of %dMB", ErrInvalidFile, maxSizeMB)
	}
	if size == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFile)
	}
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// ObjectKey builds a collision-free storage key that keeps the original
// name readable: <prefix><sanitized-name>-<uuid hex><ext>.
func ObjectKey(prefix, filename string) string {
	base := path.Base(filepath.ToSlash(filename))
	ext := filepath.Ext(base)
	name := unsafeKeyChars.ReplaceAllString(strings.TrimSuffix(base, ext), "_")
	if name == "" || name == "." {
		name = "file"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + name + "-" + id + ext
}

// KeyBase returns the last path segment of an object key.
func KeyBase(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
