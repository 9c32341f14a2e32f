// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/document"
	"github.com/leseb/ragchat/pkg/document/extractor"
	"github.com/leseb/ragchat/pkg/objectstore"
	"github.com/leseb/ragchat/pkg/observability/logging"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

// Chunk metadata keys written for uploaded documents.
const (
	MetaChunkIndex = "chunk_index"
	MetaUploadType = "upload_type"
	MetaS3Key      = "s3_key"

	UploadTypeFile = "file_upload"
)

// DefaultPresignTTL is the lifetime of download URLs returned by ListFiles.
const DefaultPresignTTL = time.Hour

// DocumentIndex is the part of the vector index used for uploaded documents.
type DocumentIndex interface {
	Add(ctx context.Context, docs []vectorstore.Document) error
	ListSources(ctx context.Context) ([]vectorstore.SourceSummary, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// ChunkCounter records indexed chunk counts. *metrics.Recorder satisfies it.
type ChunkCounter interface {
	ChunksIndexed(n int)
}

// DocumentConfig tunes DocumentService. Zero values select the package
// defaults, except ChunkOverlap where only a negative value does.
type DocumentConfig struct {
	Prefix        string
	MaxFileSizeMB int
	ChunkSize     int
	ChunkOverlap  int
	PresignTTL    time.Duration
}

// UploadResult describes a stored, not yet indexed, upload.
type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	S3Key    string `json:"s3_key"`
}

// IndexResult describes a completed indexing run.
type IndexResult struct {
	Message     string `json:"message"`
	Filename    string `json:"filename"`
	ChunksCount int    `json:"chunks_count"`
	S3Key       string `json:"s3_key"`
}

// FileInfo describes an uploaded object.
type FileInfo struct {
	Key              string    `json:"key"`
	Size             int64     `json:"size"`
	LastModified     time.Time `json:"last_modified"`
	OriginalFilename string    `json:"original_filename"`
	SignedURL        string    `json:"signed_url,omitempty"`
}

// IndexedDocument aggregates the index entries of one source.
type IndexedDocument struct {
	Source        string     `json:"source"`
	ChunksCount   int        `json:"chunks_count"`
	LastIndexedAt *time.Time `json:"last_indexed_at"`
}

// DocumentService coordinates upload, extraction, chunking and indexing
// across the object store, the embedding client and the vector index.
type DocumentService struct {
	objects  objectstore.Store
	embedder api.EmbeddingClient
	index    DocumentIndex
	counter  ChunkCounter
	logger   *logging.Logger
	cfg      DocumentConfig
	now      func() time.Time
}

// NewDocumentService creates a DocumentService. counter and logger may be
// nil.
func NewDocumentService(objects objectstore.Store, embedder api.EmbeddingClient, index DocumentIndex, counter ChunkCounter, logger *logging.Logger, cfg DocumentConfig) *DocumentService {
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = document.DefaultMaxFileSizeMB
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = document.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = document.DefaultChunkOverlap
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &DocumentService{
		objects:  objects,
		embedder: embedder,
		index:    index,
		counter:  counter,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Upload validates and stores a file without indexing it.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, body []byte) (*UploadResult, error) {
	if err := document.Validate(filename, int64(len(body)), s.cfg.MaxFileSizeMB); err != nil {
		return nil, invalidUpload(err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := document.ObjectKey(s.cfg.Prefix, filename)
	meta := map[string]string{objectstore.MetaOriginalFilename: filename}
	if err := s.objects.Put(ctx, key, body, contentType, meta); err != nil {
		return nil, fmt.Errorf("store upload %s: %w", filename, err)
	}

	s.logger.Info("document uploaded", "filename", filename, "key", key, "size", len(body))
	return &UploadResult{
		Message:  "File uploaded successfully",
		Filename: filename,
		S3Key:    key,
	}, nil
}

// ListFiles returns every uploaded object under the configured prefix.
// SignedURL is set when the object store can presign downloads.
func (s *DocumentService) ListFiles(ctx context.Context) ([]FileInfo, error) {
	objs, err := s.objects.List(ctx, s.cfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	presigner, _ := s.objects.(objectstore.Presigner)
	files := make([]FileInfo, 0, len(objs))
	for _, o := range objs {
		fi := FileInfo{
			Key:              o.Key,
			Size:             o.Size,
			LastModified:     o.LastModified,
			OriginalFilename: o.Metadata[objectstore.MetaOriginalFilename],
		}
		if fi.OriginalFilename == "" {
			fi.OriginalFilename = document.KeyBase(o.Key)
		}
		if presigner != nil {
			url, err := presigner.PresignGet(ctx, o.Key, s.cfg.PresignTTL)
			if err != nil {
				s.logger.Warn("presign failed", "key", o.Key, "error", err)
			} else {
				fi.SignedURL = url
			}
		}
		files = append(files, fi)
	}
	return files, nil
}

// IndexUploaded fetches a stored object, extracts its text, chunks and
// embeds it, and adds the chunks to the index under the resolved filename.
// filename overrides the name recorded at upload time.
func (s *DocumentService) IndexUploaded(ctx context.Context, key, filename string) (*IndexResult, error) {
	body, obj, err := s.objects.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}

	if filename == "" {
		filename = obj.Metadata[objectstore.MetaOriginalFilename]
	}
	if filename == "" {
		filename = document.KeyBase(key)
	}

	if err := document.Validate(filename, int64(len(body)), s.cfg.MaxFileSizeMB); err != nil {
		return nil, invalidUpload(err)
	}

	text, err := extractor.ExtractText(body, filename)
	if err != nil {
		return nil, classifyExtractError(err)
	}

	var chunks []string
	if strings.TrimSpace(text) != "" {
		chunks = document.ChunkText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: No content could be extracted from the file", ErrInvalidUpload)
	}

	// Embed all chunks in a single batch
	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks for %s: %w", filename, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(chunks))
	}

	indexedAt := s.now().UTC().Format(time.RFC3339Nano)
	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Text:   chunk,
			Metadata: map[string]string{
				vectorstore.MetaSource:    filename,
				vectorstore.MetaIndexedAt: indexedAt,
				MetaChunkIndex:            strconv.Itoa(i),
				MetaUploadType:            UploadTypeFile,
				MetaS3Key:                 key,
			},
		}
	}

	if err := s.index.Add(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert chunks for %s: %w", filename, err)
	}
	if s.counter != nil {
		s.counter.ChunksIndexed(len(docs))
	}

	s.logger.Info("document indexed", "filename", filename, "key", key, "chunks", len(docs))
	return &IndexResult{
		Message:     fmt.Sprintf("Successfully indexed %d document chunks", len(docs)),
		Filename:    filename,
		ChunksCount: len(docs),
		S3Key:       key,
	}, nil
}

// ListIndexed aggregates index entries by source.
func (s *DocumentService) ListIndexed(ctx context.Context) ([]IndexedDocument, error) {
	sums, err := s.index.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed sources: %w", err)
	}
	out := make([]IndexedDocument, 0, len(sums))
	for _, sum := range sums {
		d := IndexedDocument{Source: sum.Source, ChunksCount: sum.ChunksCount}
		if !sum.LastIndexedAt.IsZero() {
			t := sum.LastIndexedAt
			d.LastIndexedAt = &t
		}
		out = append(out, d)
	}
	return out, nil
}

// RemoveIndexed deletes every index entry of source and returns how many
// were removed.
func (s *DocumentService) RemoveIndexed(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("%w: source is required", ErrInvalidUpload)
	}
	n, err := s.index.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", source, err)
	}
	s.logger.Info("indexed document removed", "source", source, "chunks", n)
	return n, nil
}

// invalidUpload rewraps a document validation error under ErrInvalidUpload,
// keeping its message.
func invalidUpload(err error) error {
	msg := strings.TrimPrefix(err.Error(), document.ErrInvalidFile.Error()+": ")
	return fmt.Errorf("%w: %s", ErrInvalidUpload, msg)
}

func classifyExtractError(err error) error {
	switch {
	case errors.Is(err, extractor.ErrNotImplemented):
		return fmt.Errorf("%w: %v", ErrNotImplemented, err)
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		return fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
}
