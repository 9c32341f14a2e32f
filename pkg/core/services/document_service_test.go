// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leseb/ragchat/pkg/core/api"
	"github.com/leseb/ragchat/pkg/document/extractor"
	"github.com/leseb/ragchat/pkg/objectstore"
	"github.com/leseb/ragchat/pkg/objectstore/memory"
	"github.com/leseb/ragchat/pkg/vectorstore"
)

type presigningStore struct {
	*memory.Store
	err error
}

func (p presigningStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://signed.example/" + key + "?ttl=" + ttl.String(), nil
}

type countingRecorder struct {
	chunks int
}

func (c *countingRecorder) ChunksIndexed(n int) { c.chunks += n }

type docHarness struct {
	objects *memory.Store
	index   *vectorstore.MemoryBackend
	counter *countingRecorder
	svc     *DocumentService
}

func newDocHarness(t *testing.T, store objectstore.Store, cfg DocumentConfig) *docHarness {
	t.Helper()
	index := vectorstore.NewMemoryBackend()
	if err := index.Init(context.Background(), api.DefaultMockDimensions); err != nil {
		t.Fatal(err)
	}
	h := &docHarness{index: index, counter: &countingRecorder{}}
	if store == nil {
		h.objects = memory.New()
		store = h.objects
	}
	h.svc = NewDocumentService(store, api.NewMockEmbeddingClient(0), index, h.counter, nil, cfg)
	h.svc.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestDocumentService_Upload(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{Prefix: "uploads/"})
	ctx := context.Background()

	res, err := h.svc.Upload(ctx, "My Notes.md", "text/markdown", []byte("# hello"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(res.S3Key, "uploads/My_Notes-") || !strings.HasSuffix(res.S3Key, ".md") {
		t.Errorf("unexpected key %q", res.S3Key)
	}
	if res.Filename != "My Notes.md" || res.Message != "File uploaded successfully" {
		t.Errorf("unexpected result %+v", res)
	}

	obj, err := h.objects.Head(ctx, res.S3Key)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if obj.Metadata[objectstore.MetaOriginalFilename] != "My Notes.md" {
		t.Errorf("original filename not recorded: %v", obj.Metadata)
	}
	if h.index.Len() != 0 {
		t.Error("upload must not index")
	}
}

func TestDocumentService_UploadValidation(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{MaxFileSizeMB: 1})

	tests := []struct {
		name     string
		filename string
		body     []byte
		wantMsg  string
	}{
		{"missing filename", "", []byte("x"), "filename is required"},
		{"bad extension", "run.exe", []byte("x"), "file type not supported"},
		{"empty", "a.txt", nil, "file is empty"},
		{"too large", "a.txt", make([]byte, 1024*1024+1), "maximum allowed size of 1MB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Upload(context.Background(), tt.filename, "", tt.body)
			if !errors.Is(err, ErrInvalidUpload) {
				t.Fatalf("expected ErrInvalidUpload, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}

	objs, _ := h.objects.List(context.Background(), "")
	if len(objs) != 0 {
		t.Errorf("rejected uploads must not be stored, found %d", len(objs))
	}
}

func TestDocumentService_IndexUploaded(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{ChunkSize: 10, ChunkOverlap: 2})
	ctx := context.Background()

	up, err := h.svc.Upload(ctx, "guide.txt", "text/plain", []byte("abcdefghijklmnopqrstuvwxyz"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	res, err := h.svc.IndexUploaded(ctx, up.S3Key, "")
	if err != nil {
		t.Fatalf("IndexUploaded: %v", err)
	}
	if res.Filename != "guide.txt" || res.ChunksCount != 3 || res.S3Key != up.S3Key {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Message != "Successfully indexed 3 document chunks" {
		t.Errorf("Message = %q", res.Message)
	}
	if h.counter.chunks != 3 {
		t.Errorf("counter = %d, want 3", h.counter.chunks)
	}

	hits, err := h.index.Search(ctx, make([]float32, api.DefaultMockDimensions), 10)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, hit := range hits {
		m := hit.Metadata
		if m["source"] != "guide.txt" || m["upload_type"] != "file_upload" || m["s3_key"] != up.S3Key {
			t.Errorf("unexpected metadata %v", m)
		}
		if m["indexed_at"] != "2025-06-01T09:00:00Z" {
			t.Errorf("indexed_at = %q", m["indexed_at"])
		}
		seen[m["chunk_index"]] = true
	}
	for _, idx := range []string{"0", "1", "2"} {
		if !seen[idx] {
			t.Errorf("missing chunk_index %s", idx)
		}
	}

	indexed, err := h.svc.ListIndexed(ctx)
	if err != nil {
		t.Fatalf("ListIndexed: %v", err)
	}
	if len(indexed) != 1 || indexed[0].Source != "guide.txt" || indexed[0].ChunksCount != 3 {
		t.Fatalf("unexpected summary %+v", indexed)
	}
	if indexed[0].LastIndexedAt == nil || !indexed[0].LastIndexedAt.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("LastIndexedAt = %v", indexed[0].LastIndexedAt)
	}

	n, err := h.svc.RemoveIndexed(ctx, "guide.txt")
	if err != nil || n != 3 {
		t.Fatalf("RemoveIndexed = %d, %v", n, err)
	}
	if h.index.Len() != 0 {
		t.Error("index should be empty")
	}
}

func TestDocumentService_IndexUploadedFilename(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{})
	ctx := context.Background()

	if err := h.objects.Put(ctx, "raw/notes.md", []byte("plain notes"), "text/markdown", nil); err != nil {
		t.Fatal(err)
	}

	res, err := h.svc.IndexUploaded(ctx, "raw/notes.md", "")
	if err != nil {
		t.Fatalf("IndexUploaded: %v", err)
	}
	if res.Filename != "notes.md" {
		t.Errorf("expected key basename, got %q", res.Filename)
	}

	res, err = h.svc.IndexUploaded(ctx, "raw/notes.md", "renamed.txt")
	if err != nil {
		t.Fatalf("IndexUploaded: %v", err)
	}
	if res.Filename != "renamed.txt" {
		t.Errorf("explicit filename should win, got %q", res.Filename)
	}
}

func TestDocumentService_IndexUploadedErrors(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{})
	ctx := context.Background()

	put := func(key string, body []byte) {
		t.Helper()
		if err := h.objects.Put(ctx, key, body, "", nil); err != nil {
			t.Fatal(err)
		}
	}
	put("report.docx", []byte("PK..."))
	put("blank.txt", []byte("   "))
	put("latin1.txt", []byte{0xff, 0xfe, 0x41})

	tests := []struct {
		name     string
		key      string
		filename string
		want     error
	}{
		{"missing object", "nope.txt", "", objectstore.ErrObjectNotFound},
		{"docx", "report.docx", "", ErrNotImplemented},
		{"unknown type", "report.docx", "report.xyz", ErrInvalidUpload},
		{"no chunks", "blank.txt", "", ErrInvalidUpload},
		{"bad encoding", "latin1.txt", "", ErrInvalidUpload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.IndexUploaded(ctx, tt.key, tt.filename)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if h.index.Len() != 0 {
		t.Error("failed indexing must not write")
	}
}

func TestClassifyExtractError(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{fmt.Errorf("docx: %w", extractor.ErrNotImplemented), ErrNotImplemented},
		{fmt.Errorf("%w: \".xyz\"", extractor.ErrUnsupportedFormat), ErrUnsupportedFileType},
		{extractor.ErrNoText, ErrInvalidUpload},
		{errors.New("malformed PDF"), ErrInvalidUpload},
	}
	for _, tt := range tests {
		if err := classifyExtractError(tt.in); !errors.Is(err, tt.want) {
			t.Errorf("classifyExtractError(%v) = %v, want %v", tt.in, err, tt.want)
		}
	}
}

func TestDocumentService_ListFiles(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	h := newDocHarness(t, presigningStore{Store: mem}, DocumentConfig{Prefix: "uploads/"})

	if _, err := h.svc.Upload(ctx, "a.txt", "text/plain", []byte("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := mem.Put(ctx, "uploads/legacy.md", []byte("x"), "", nil); err != nil {
		t.Fatal(err)
	}
	if err := mem.Put(ctx, "elsewhere/b.txt", []byte("x"), "", nil); err != nil {
		t.Fatal(err)
	}

	files, err := h.svc.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files under prefix, got %d", len(files))
	}
	byName := map[string]FileInfo{}
	for _, f := range files {
		byName[f.OriginalFilename] = f
	}
	a, ok := byName["a.txt"]
	if !ok || a.Size != 5 {
		t.Errorf("a.txt missing or wrong size: %+v", files)
	}
	if !strings.HasSuffix(a.SignedURL, "?ttl=1h0m0s") {
		t.Errorf("SignedURL = %q", a.SignedURL)
	}
	if _, ok := byName["legacy.md"]; !ok {
		t.Errorf("expected key basename fallback, got %+v", files)
	}
}

func TestDocumentService_ListFilesPresignFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	h := newDocHarness(t, presigningStore{Store: mem, err: errors.New("no creds")}, DocumentConfig{})
	if err := mem.Put(ctx, "a.txt", []byte("x"), "", nil); err != nil {
		t.Fatal(err)
	}

	files, err := h.svc.ListFiles(ctx)
	if err != nil {
		t.Fatalf("presign failures must not fail the listing: %v", err)
	}
	if len(files) != 1 || files[0].SignedURL != "" {
		t.Errorf("unexpected files %+v", files)
	}
}

func TestDocumentService_RemoveIndexedRequiresSource(t *testing.T) {
	h := newDocHarness(t, nil, DocumentConfig{})
	if _, err := h.svc.RemoveIndexed(context.Background(), ""); !errors.Is(err, ErrInvalidUpload) {
		t.Errorf("expected ErrInvalidUpload, got %v", err)
	}
}
