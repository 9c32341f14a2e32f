// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/leseb/ragchat/pkg/vectorstore"
)

func init() {
	vectorstore.Providers.Register("milvus", func(ctx context.Context, params map[string]string) (vectorstore.Backend, error) {
		return NewBackend(ctx, params["address"], params["collection"])
	})
}

// compile-time check
var _ vectorstore.Backend = (*Backend)(nil)

const (
	fieldID        = "id"
	fieldSource    = "source"
	fieldText      = "text"
	fieldMetadata  = "metadata"
	fieldEmbedding = "embedding"

	// DefaultCollection is used when no collection name is configured.
	DefaultCollection = "rag_documents"

	maxTextLength     = 65535
	maxMetadataLength = 8192
	maxIDLength       = 256
	maxSourceLength   = 1024

	// queryLimit bounds scalar queries; Milvus rejects unbounded ones.
	queryLimit = 16384
)

// Backend implements vectorstore.Backend on a single Milvus collection.
type Backend struct {
	client     milvusclient.Client
	collection string
	pageSize   int
}

// NewBackend connects to Milvus and returns a Backend.
func NewBackend(ctx context.Context, address, collection string) (*Backend, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	c, err := milvusclient.NewClient(ctx, milvusclient.Config{
		Address: address,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus connect %s: %w", address, err)
	}
	return &Backend{client: c, collection: collection, pageSize: queryLimit}, nil
}

// Init creates the collection, an HNSW index, and loads it. An existing
// collection is only loaded.
func (b *Backend) Init(ctx context.Context, dimensions int) error {
	exists, err := b.client.HasCollection(ctx, b.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", b.collection, err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(b.collection).
			WithField(entity.NewField().
				WithName(fieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(maxIDLength)).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(fieldSource).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(maxSourceLength))).
			WithField(entity.NewField().
				WithName(fieldText).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(maxTextLength))).
			WithField(entity.NewField().
				WithName(fieldMetadata).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(maxMetadataLength))).
			WithField(entity.NewField().
				WithName(fieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dimensions)))

		if err := b.client.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("create collection %s: %w", b.collection, err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
		if err != nil {
			return fmt.Errorf("create HNSW index params: %w", err)
		}
		if err := b.client.CreateIndex(ctx, b.collection, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("create index on %s: %w", b.collection, err)
		}
	}

	if err := b.client.LoadCollection(ctx, b.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", b.collection, err)
	}
	return nil
}

// Add upserts the documents so that a repeated id replaces the old entry.
func (b *Backend) Add(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	sources := make([]string, len(docs))
	texts := make([]string, len(docs))
	metas := make([]string, len(docs))
	vectors := make([][]float32, len(docs))

	for i, d := range docs {
		metaJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		text := d.Text
		if len(text) > maxTextLength {
			text = text[:maxTextLength]
		}
		ids[i] = d.ID
		sources[i] = d.Source()
		texts[i] = text
		metas[i] = string(metaJSON)
		vectors[i] = d.Vector
	}

	dim := len(vectors[0])
	_, err := b.client.Upsert(ctx, b.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldSource, sources),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldMetadata, metas),
		entity.NewColumnFloatVector(fieldEmbedding, dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", b.collection, err)
	}

	if err := b.client.Flush(ctx, b.collection, false); err != nil {
		return fmt.Errorf("flush %s: %w", b.collection, err)
	}
	return nil
}

// Delete removes the given primary keys. Milvus treats absent keys as a no-op.
func (b *Backend) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.client.Delete(ctx, b.collection, "", inExpr(fieldID, ids)); err != nil {
		return fmt.Errorf("delete from %s: %w", b.collection, err)
	}
	return nil
}

// Get fetches entries by primary key.
func (b *Backend) Get(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rs, err := b.client.Query(ctx, b.collection, nil, inExpr(fieldID, ids),
		[]string{fieldID, fieldText, fieldMetadata, fieldEmbedding})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", b.collection, err)
	}

	idCol := rs.GetColumn(fieldID)
	if idCol == nil {
		return nil, nil
	}
	textCol := rs.GetColumn(fieldText)
	metaCol := rs.GetColumn(fieldMetadata)
	vecCol, _ := rs.GetColumn(fieldEmbedding).(*entity.ColumnFloatVector)

	out := make([]vectorstore.Document, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		id, _ := idCol.GetAsString(i)
		text, _ := textCol.GetAsString(i)
		metaStr, _ := metaCol.GetAsString(i)
		meta, err := decodeMetadata(metaStr)
		if err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		doc := vectorstore.Document{ID: id, Text: text, Metadata: meta}
		if vecCol != nil && i < len(vecCol.Data()) {
			doc.Vector = vecCol.Data()[i]
		}
		out = append(out, doc)
	}
	return out, nil
}

// Search performs a cosine similarity search over the collection.
func (b *Backend) Search(ctx context.Context, queryVector []float32, topK int) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("create search params: %w", err)
	}

	results, err := b.client.Search(
		ctx,
		b.collection,
		nil,
		"",
		[]string{fieldID, fieldText, fieldMetadata},
		[]entity.Vector{entity.FloatVector(queryVector)},
		fieldEmbedding,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", b.collection, err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	sr := results[0]
	if sr.Err != nil {
		return nil, fmt.Errorf("search result error: %w", sr.Err)
	}

	idCol := sr.Fields.GetColumn(fieldID)
	textCol := sr.Fields.GetColumn(fieldText)
	metaCol := sr.Fields.GetColumn(fieldMetadata)

	out := make([]vectorstore.SearchResult, 0, sr.ResultCount)
	for i := 0; i < sr.ResultCount; i++ {
		id, _ := idCol.GetAsString(i)
		text, _ := textCol.GetAsString(i)
		metaStr, _ := metaCol.GetAsString(i)
		meta, err := decodeMetadata(metaStr)
		if err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		out = append(out, vectorstore.SearchResult{
			ID:       id,
			Text:     text,
			Metadata: meta,
			Score:    float64(sr.Scores[i]),
		})
	}
	return out, nil
}

// ListSources scans the metadata column and aggregates it by source.
func (b *Backend) ListSources(ctx context.Context) ([]vectorstore.SourceSummary, error) {
	rs, err := b.client.Query(ctx, b.collection, nil, fieldSource+` != ""`,
		[]string{fieldMetadata}, milvusclient.WithLimit(queryLimit))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", b.collection, err)
	}

	metaCol := rs.GetColumn(fieldMetadata)
	if metaCol == nil {
		return nil, nil
	}
	metas := make([]map[string]string, 0, metaCol.Len())
	for i := 0; i < metaCol.Len(); i++ {
		s, _ := metaCol.GetAsString(i)
		meta, err := decodeMetadata(s)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return vectorstore.Summarize(metas), nil
}

// DeleteBySource deletes every entry carrying source, a page of ids at a
// time, until a strongly consistent query finds none left.
func (b *Backend) DeleteBySource(ctx context.Context, source string) (int, error) {
	expr := fmt.Sprintf(`%s == "%s"`, fieldSource, escapeExpr(source))
	deleted := make(map[string]bool)

	for {
		rs, err := b.client.Query(ctx, b.collection, nil, expr, []string{fieldID},
			milvusclient.WithLimit(int64(b.pageSize)),
			milvusclient.WithSearchQueryConsistencyLevel(entity.ClStrong))
		if err != nil {
			return len(deleted), fmt.Errorf("query %s: %w", b.collection, err)
		}

		idCol := rs.GetColumn(fieldID)
		if idCol == nil || idCol.Len() == 0 {
			return len(deleted), nil
		}
		ids := make([]string, 0, idCol.Len())
		for i := 0; i < idCol.Len(); i++ {
			id, _ := idCol.GetAsString(i)
			if deleted[id] {
				return len(deleted), fmt.Errorf("delete source %q from %s: id %q still present after delete", source, b.collection, id)
			}
			ids = append(ids, id)
		}
		if err := b.Delete(ctx, ids); err != nil {
			return len(deleted), err
		}
		for _, id := range ids {
			deleted[id] = true
		}
		if len(ids) < b.pageSize {
			return len(deleted), nil
		}
	}
}

// Close releases the Milvus client connection.
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Close()
}

func decodeMetadata(s string) (map[string]string, error) {
	if s == "" || s == "null" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// inExpr builds `field in ["a", "b"]`.
func inExpr(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + escapeExpr(v) + `"`
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}

// escapeExpr escapes backslashes and double quotes for Milvus filter expressions.
func escapeExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
