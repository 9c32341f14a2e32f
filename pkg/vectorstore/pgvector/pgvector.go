// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/leseb/ragchat/pkg/vectorstore"
)

func init() {
	vectorstore.Providers.Register("pgvector", func(ctx context.Context, params map[string]string) (vectorstore.Backend, error) {
		return New(ctx, params["dsn"], params["table"])
	})
}

// compile-time check
var _ vectorstore.Backend = (*Backend)(nil)

// DefaultTable is used when no table name is configured.
const DefaultTable = "rag_documents"

// Backend implements vectorstore.Backend on a PostgreSQL table with the
// pgvector extension.
type Backend struct {
	pool  *pgxpool.Pool
	table string // sanitized identifier
}

// New connects to PostgreSQL and checks that the vector extension exists.
// The table itself is created by Init.
func New(ctx context.Context, dsn, table string) (*Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector: connection string is required")
	}
	if table == "" {
		table = DefaultTable
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector: parse connection string: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgvector: create pool: %w", err)
	}

	var extExists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')",
	).Scan(&extExists)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector: check extension: %w", err)
	}
	if !extExists {
		pool.Close()
		return nil, fmt.Errorf("pgvector: extension not installed, run CREATE EXTENSION vector")
	}

	return &Backend{
		pool:  pool,
		table: pgx.Identifier{table}.Sanitize(),
	}, nil
}

// Init creates the table and its cosine HNSW index if they are missing.
func (b *Backend) Init(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("pgvector: dimensions must be positive, got %d", dimensions)
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, b.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source)`,
			pgx.Identifier{indexName(b.table, "source")}.Sanitize(), b.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{indexName(b.table, "embedding")}.Sanitize(), b.table),
	}
	for _, stmt := range stmts {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: init %s: %w", b.table, err)
		}
	}
	return nil
}

// Add upserts all documents in a single batch.
func (b *Backend) Add(ctx context.Context, docs []vectorstore.Document) error {
	if len(docs) == 0 {
		return nil
	}

	upsertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, source, text, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`, b.table)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, d := range docs {
		metaJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata for %s: %w", d.ID, err)
		}
		batch.Queue(upsertSQL, d.ID, d.Source(), d.Text, metaJSON, pgvector.NewVector(d.Vector), now)
	}

	results := b.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("pgvector: upsert %s: %w", docs[i].ID, err)
		}
	}
	return nil
}

// Delete removes the ids that exist.
func (b *Backend) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := b.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", b.table), ids)
	if err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// Get fetches entries by id.
func (b *Backend) Get(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := b.pool.Query(ctx,
		fmt.Sprintf("SELECT id, text, metadata, embedding FROM %s WHERE id = ANY($1) ORDER BY id", b.table), ids)
	if err != nil {
		return nil, fmt.Errorf("pgvector: get: %w", err)
	}
	defer rows.Close()

	var out []vectorstore.Document
	for rows.Next() {
		var (
			doc      vectorstore.Document
			metaJSON []byte
			vec      pgvector.Vector
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &metaJSON, &vec); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("pgvector: decode metadata for %s: %w", doc.ID, err)
		}
		doc.Vector = vec.Slice()
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Search orders entries by cosine distance to queryVector.
func (b *Backend) Search(ctx context.Context, queryVector []float32, topK int) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	rows, err := b.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, b.table),
		pgvector.NewVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	out := make([]vectorstore.SearchResult, 0, topK)
	for rows.Next() {
		var (
			r        vectorstore.SearchResult
			metaJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.Text, &metaJSON, &r.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("pgvector: decode metadata for %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSources aggregates entries by source in SQL.
func (b *Backend) ListSources(ctx context.Context) ([]vectorstore.SourceSummary, error) {
	rows, err := b.pool.Query(ctx, fmt.Sprintf(`
		SELECT source, COUNT(*), COALESCE(MAX(metadata->>'indexed_at'), '')
		FROM %s
		WHERE source <> ''
		GROUP BY source
		ORDER BY source`, b.table))
	if err != nil {
		return nil, fmt.Errorf("pgvector: list sources: %w", err)
	}
	defer rows.Close()

	var out []vectorstore.SourceSummary
	for rows.Next() {
		var (
			s         vectorstore.SourceSummary
			indexedAt string
		)
		if err := rows.Scan(&s.Source, &s.ChunksCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, indexedAt); err == nil {
			s.LastIndexedAt = ts
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteBySource removes every entry with the given source.
func (b *Backend) DeleteBySource(ctx context.Context, source string) (int, error) {
	tag, err := b.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = $1", b.table), source)
	if err != nil {
		return 0, fmt.Errorf("pgvector: delete by source: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the connection pool.
func (b *Backend) Close(_ context.Context) error {
	b.pool.Close()
	return nil
}

// indexName derives an index name from an already-quoted table identifier.
func indexName(quotedTable, suffix string) string {
	name := make([]rune, 0, len(quotedTable)+len(suffix)+1)
	for _, r := range quotedTable {
		if r != '"' {
			name = append(name, r)
		}
	}
	return string(name) + "_" + suffix + "_idx"
}
