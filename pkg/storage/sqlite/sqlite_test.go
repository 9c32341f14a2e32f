// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"testing"

	"github.com/leseb/ragchat/pkg/qa"
	"github.com/leseb/ragchat/pkg/storage/sqlstore/sqlstoretest"
)

func TestSQLiteStore(t *testing.T) {
	sqlstoretest.RunConformanceTests(t, func(t *testing.T) sqlstoretest.Store {
		s, err := New(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestNew_RequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestRegistered(t *testing.T) {
	if !qa.Providers.Has("sqlite") {
		t.Fatal("sqlite provider not registered")
	}
}
