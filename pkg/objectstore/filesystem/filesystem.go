// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leseb/ragchat/pkg/objectstore"
)

func init() {
	objectstore.Providers.Register("filesystem", func(_ context.Context, params map[string]string) (objectstore.Store, error) {
		return New(params["base_dir"])
	})
}

// compile-time check
var _ objectstore.Store = (*Store)(nil)

// objectMetadata is the JSON sidecar stored next to each object.
type objectMetadata struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata"`
}

// Store implements objectstore.Store backed by a local filesystem.
//
// Layout:
//
//	<baseDir>/objects/<key>      raw bytes
//	<baseDir>/meta/<key>.json    JSON metadata sidecar
type Store struct {
	baseDir string
}

// New creates a filesystem-backed Store, creating baseDir if it does not exist.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("filesystem objectstore: base_dir is required")
	}
	for _, dir := range []string{"objects", "meta"} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create base dir %s: %w", baseDir, err)
		}
	}
	return &Store{baseDir: baseDir}, nil
}

// Put writes the object and its sidecar atomically (temp file + rename).
func (s *Store) Put(_ context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}

	meta := objectMetadata{ContentType: contentType, Metadata: map[string]string{}}
	for k, v := range metadata {
		meta.Metadata[strings.ToLower(k)] = v
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := writeAtomic(objPath, body); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := writeAtomic(metaPath, metaBytes); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, *objectstore.Object, error) {
	obj, err := s.Head(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	objPath, _, _ := s.paths(key)
	data, err := os.ReadFile(objPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
		}
		return nil, nil, fmt.Errorf("read object: %w", err)
	}
	return data, obj, nil
}

func (s *Store) Head(_ context.Context, key string) (*objectstore.Object, error) {
	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(objPath)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}

	var meta objectMetadata
	data, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", key, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if meta.Metadata == nil {
		meta.Metadata = map[string]string{}
	}

	return &objectstore.Object{
		Key:          key,
		Size:         info.Size(),
		ContentType:  meta.ContentType,
		LastModified: info.ModTime().UTC(),
		Metadata:     meta.Metadata,
	}, nil
}

// List walks the object tree; keys use forward slashes on every platform.
func (s *Store) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	root := filepath.Join(s.baseDir, "objects")
	var out []objectstore.Object

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		obj, err := s.Head(ctx, key)
		if err != nil {
			return err
		}
		out = append(out, *obj)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	objPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}
	for _, p := range []string{objPath, metaPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

// paths maps a key to its object and sidecar paths, rejecting keys that
// would resolve outside the store.
func (s *Store) paths(key string) (string, string, error) {
	clean := path.Clean("/" + key)
	if key == "" || strings.HasSuffix(key, "/") || clean != "/"+key {
		return "", "", fmt.Errorf("%w: %q", objectstore.ErrInvalidKey, key)
	}
	rel := filepath.FromSlash(strings.TrimPrefix(clean, "/"))
	return filepath.Join(s.baseDir, "objects", rel),
		filepath.Join(s.baseDir, "meta", rel+".json"),
		nil
}

func writeAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
