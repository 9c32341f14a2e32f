// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package objectstoretest

import (
	"context"
	"strings"

	"github.com/leseb/ragchat/pkg/objectstore"
)

// Prefixed confines a store to keys under prefix so that tests sharing a
// bucket do not see each other's objects.
func Prefixed(store objectstore.Store, prefix string) objectstore.Store {
	return &prefixed{Store: store, prefix: prefix}
}

type prefixed struct {
	objectstore.Store
	prefix string
}

func (p *prefixed) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	return p.Store.Put(ctx, p.prefix+key, body, contentType, metadata)
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, *objectstore.Object, error) {
	body, obj, err := p.Store.Get(ctx, p.prefix+key)
	if obj != nil {
		obj.Key = strings.TrimPrefix(obj.Key, p.prefix)
	}
	return body, obj, err
}

func (p *prefixed) Head(ctx context.Context, key string) (*objectstore.Object, error) {
	obj, err := p.Store.Head(ctx, p.prefix+key)
	if obj != nil {
		obj.Key = strings.TrimPrefix(obj.Key, p.prefix)
	}
	return obj, err
}

func (p *prefixed) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	objs, err := p.Store.List(ctx, p.prefix+prefix)
	for i := range objs {
		objs[i].Key = strings.TrimPrefix(objs[i].Key, p.prefix)
	}
	return objs, err
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.Store.Delete(ctx, p.prefix+key)
}
