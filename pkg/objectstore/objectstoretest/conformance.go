// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstoretest provides a shared conformance test suite for
// objectstore.Store implementations. Each backend should call
// RunConformanceTests from its own _test.go file.
package objectstoretest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/leseb/ragchat/pkg/objectstore"
)

// RunConformanceTests exercises a Store implementation against the shared
// contract. The newStore function is called once per sub-test to provide an
// isolated, empty store.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) objectstore.Store) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		meta := map[string]string{objectstore.MetaOriginalFilename: "hello world.txt"}
		if err := store.Put(ctx, "uploads/hello.txt", []byte("hello"), "text/plain", meta); err != nil {
			t.Fatalf("Put: %v", err)
		}

		body, obj, err := store.Get(ctx, "uploads/hello.txt")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(body) != "hello" {
			t.Errorf("body = %q, want %q", body, "hello")
		}
		if obj.Key != "uploads/hello.txt" || obj.Size != 5 || obj.ContentType != "text/plain" {
			t.Errorf("unexpected object: %+v", obj)
		}
		if obj.Metadata[objectstore.MetaOriginalFilename] != "hello world.txt" {
			t.Errorf("metadata = %v", obj.Metadata)
		}
		if obj.LastModified.IsZero() {
			t.Error("LastModified not set")
		}
	})

	t.Run("Head", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.Put(ctx, "docs/a.md", []byte("# a"), "text/markdown", map[string]string{"k": "v"}); err != nil {
			t.Fatalf("Put: %v", err)
		}
		obj, err := store.Head(ctx, "docs/a.md")
		if err != nil {
			t.Fatalf("Head: %v", err)
		}
		if obj.Size != 3 || obj.Metadata["k"] != "v" {
			t.Errorf("unexpected object: %+v", obj)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if _, _, err := store.Get(ctx, "missing.txt"); !errors.Is(err, objectstore.ErrObjectNotFound) {
			t.Errorf("Get: expected ErrObjectNotFound, got %v", err)
		}
		if _, err := store.Head(ctx, "missing.txt"); !errors.Is(err, objectstore.ErrObjectNotFound) {
			t.Errorf("Head: expected ErrObjectNotFound, got %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.Put(ctx, "k.txt", []byte("one"), "text/plain", nil); err != nil {
			t.Fatal(err)
		}
		if err := store.Put(ctx, "k.txt", []byte("second"), "text/plain", nil); err != nil {
			t.Fatal(err)
		}
		body, obj, err := store.Get(ctx, "k.txt")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(body, []byte("second")) || obj.Size != 6 {
			t.Errorf("got %q (%d bytes), want %q", body, obj.Size, "second")
		}
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		for _, key := range []string{"uploads/b.txt", "uploads/a.txt", "other/c.txt"} {
			meta := map[string]string{objectstore.MetaOriginalFilename: key}
			if err := store.Put(ctx, key, []byte(key), "text/plain", meta); err != nil {
				t.Fatalf("Put(%s): %v", key, err)
			}
		}

		objs, err := store.List(ctx, "uploads/")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(objs) != 2 || objs[0].Key != "uploads/a.txt" || objs[1].Key != "uploads/b.txt" {
			t.Fatalf("List(uploads/) = %+v", objs)
		}
		if objs[0].Metadata[objectstore.MetaOriginalFilename] != "uploads/a.txt" {
			t.Errorf("List did not return metadata: %+v", objs[0])
		}
		if objs[0].Size != int64(len("uploads/a.txt")) {
			t.Errorf("size = %d", objs[0].Size)
		}

		all, err := store.List(ctx, "")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("List(\"\") returned %d objects, want 3", len(all))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer store.Close(context.Background())
		ctx := context.Background()

		if err := store.Put(ctx, "gone.txt", []byte("x"), "text/plain", nil); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, "gone.txt"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Head(ctx, "gone.txt"); !errors.Is(err, objectstore.ErrObjectNotFound) {
			t.Errorf("expected ErrObjectNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "never-existed.txt"); err != nil {
			t.Errorf("deleting an absent key should succeed, got %v", err)
		}
	})
}
