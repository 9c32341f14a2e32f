// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leseb/ragchat/pkg/objectstore"
)

func init() {
	objectstore.Providers.Register("memory", func(_ context.Context, _ map[string]string) (objectstore.Store, error) {
		return New(), nil
	})
}

// compile-time check
var _ objectstore.Store = (*Store)(nil)

type entry struct {
	body []byte
	obj  objectstore.Object
}

// Store is an in-memory object store.
type Store struct {
	mu      sync.RWMutex
	objects map[string]entry
	now     func() time.Time
}

// New creates a new in-memory object store.
func New() *Store {
	return &Store{
		objects: make(map[string]entry),
		now:     time.Now,
	}
}

// Put stores a copy of body, replacing any existing object.
func (s *Store) Put(_ context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	if key == "" {
		return objectstore.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = entry{
		body: append([]byte(nil), body...),
		obj: objectstore.Object{
			Key:          key,
			Size:         int64(len(body)),
			ContentType:  contentType,
			LastModified: s.now().UTC(),
			Metadata:     lowerKeys(metadata),
		},
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, *objectstore.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}
	obj := cloneObject(e.obj)
	return append([]byte(nil), e.body...), &obj, nil
}

func (s *Store) Head(_ context.Context, key string) (*objectstore.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, objectstore.ErrObjectNotFound)
	}
	obj := cloneObject(e.obj)
	return &obj, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]objectstore.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []objectstore.Object
	for key, e := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, cloneObject(e.obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func cloneObject(o objectstore.Object) objectstore.Object {
	o.Metadata = lowerKeys(o.Metadata)
	return o
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
