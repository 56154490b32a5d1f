package knowledge

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	// postgres driver
	_ "github.com/lib/pq"
)

// PGVectorIndex stores documents in a Postgres table with a pgvector column.
type PGVectorIndex struct {
	db         *sql.DB
	dimensions int
}

// OpenPGVectorIndex connects to dsn and makes sure the schema exists.
func OpenPGVectorIndex(ctx context.Context, dsn string, dimensions int) (*PGVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	idx := &PGVectorIndex{db: db, dimensions: dimensions}
	if err := idx.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PGVectorIndex) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge_document (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			category TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			crop TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, p.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_knowledge_document_category ON knowledge_document (category)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to initialize knowledge schema")
		}
	}
	return nil
}

// Query returns the k nearest documents by cosine distance.
func (p *PGVectorIndex) Query(ctx context.Context, vec []float32, k int, filter string) ([]Match, error) {
	if len(vec) != p.dimensions {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", len(vec), p.dimensions)
	}

	query := `
		SELECT id, content, category, source, crop, embedding <=> $1 AS distance
		FROM knowledge_document
		WHERE ($2::text = '' OR category = $2::text)
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := p.db.QueryContext(ctx, query, pgvector.NewVector(vec), filter, k)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge documents")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata.Category, &m.Metadata.Source, &m.Metadata.Crop, &m.Distance); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge document")
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate knowledge documents")
	}
	return matches, nil
}

// Upsert inserts or replaces a document.
func (p *PGVectorIndex) Upsert(ctx context.Context, doc Document, vec []float32) error {
	if len(vec) != p.dimensions {
		return errors.Wrapf(ErrDimension, "got %d, want %d", len(vec), p.dimensions)
	}
	stmt := `
		INSERT INTO knowledge_document (id, content, category, source, crop, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			source = EXCLUDED.source,
			crop = EXCLUDED.crop,
			embedding = EXCLUDED.embedding
	`
	_, err := p.db.ExecContext(ctx, stmt,
		doc.ID, doc.Content, doc.Metadata.Category, doc.Metadata.Source, doc.Metadata.Crop,
		pgvector.NewVector(vec),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert knowledge document %s", doc.ID)
	}
	return nil
}

// Count returns the number of stored documents.
func (p *PGVectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_document`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count knowledge documents")
	}
	return n, nil
}

// Close releases the connection pool.
func (p *PGVectorIndex) Close() error {
	return p.db.Close()
}
