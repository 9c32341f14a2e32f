// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"time"

	"github.com/leseb/ragchat/pkg/provider"
)

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys or keys that escape the store
// root.
var ErrInvalidKey = errors.New("invalid object key")

// MetaOriginalFilename records the name a file was uploaded under.
const MetaOriginalFilename = "original_filename"

// Providers is the registry of object store backend implementations.
// Import implementation packages with blank imports to register them:
//
//	import _ "github.com/leseb/ragchat/pkg/objectstore/memory"
//	import _ "github.com/leseb/ragchat/pkg/objectstore/filesystem"
//	import _ "github.com/leseb/ragchat/pkg/objectstore/s3"
var Providers = provider.NewRegistry[Store]("object_store")

// Object describes a stored object. Metadata keys are lower-case.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Store defines the interface for pluggable object storage backends.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, *Object, error)
	Head(ctx context.Context, key string) (*Object, error)
	// List returns every object under prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Delete removes an object; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// Presigner is implemented by backends that can hand out temporary
// download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
