package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	// sqlite driver
	_ "modernc.org/sqlite"
)

// SQLiteIndex keeps vectors as little-endian float32 BLOBs and ranks them
// in process. Suitable for the small built-in corpus and for tests.
type SQLiteIndex struct {
	db         *sql.DB
	dimensions int
}

// OpenSQLiteIndex opens (or creates) the database at dsn. ":memory:" gives a
// private in-memory index.
func OpenSQLiteIndex(ctx context.Context, dsn string, dimensions int) (*SQLiteIndex, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "failed to create index directory")
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}
	// a second connection to :memory: would see an empty database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping sqlite")
	}

	idx := &SQLiteIndex{db: db, dimensions: dimensions}
	if err := idx.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS knowledge_document (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		crop TEXT NOT NULL DEFAULT '',
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_document_category ON knowledge_document (category);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to initialize knowledge schema")
	}
	return nil
}

// Query scans the (optionally filtered) table and returns the k rows with
// the smallest cosine distance.
func (s *SQLiteIndex) Query(ctx context.Context, vec []float32, k int, filter string) ([]Match, error) {
	if len(vec) != s.dimensions {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", len(vec), s.dimensions)
	}

	query := `SELECT id, content, category, source, crop, embedding FROM knowledge_document`
	var args []any
	if filter != "" {
		query += ` WHERE category = ?`
		args = append(args, filter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge documents")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &m.Metadata.Category, &m.Metadata.Source, &m.Metadata.Crop, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge document")
		}
		stored, err := decodeVector(blob, s.dimensions)
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", m.ID)
		}
		m.Distance = 1 - cosineSimilarity(vec, stored)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate knowledge documents")
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Upsert inserts or replaces a document.
func (s *SQLiteIndex) Upsert(ctx context.Context, doc Document, vec []float32) error {
	blob, err := encodeVector(vec, s.dimensions)
	if err != nil {
		return err
	}
	stmt := `INSERT INTO knowledge_document (id, content, category, source, crop, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			source = excluded.source,
			crop = excluded.crop,
			embedding = excluded.embedding`
	_, err = s.db.ExecContext(ctx, stmt,
		doc.ID, doc.Content, doc.Metadata.Category, doc.Metadata.Source, doc.Metadata.Crop, blob,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert knowledge document %s", doc.ID)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_document`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count knowledge documents")
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func encodeVector(vec []float32, dimensions int) ([]byte, error) {
	if len(vec) != dimensions {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", len(vec), dimensions)
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

func decodeVector(blob []byte, dimensions int) ([]float32, error) {
	if len(blob) != dimensions*4 {
		return nil, errors.Wrapf(ErrDimension, "blob has %d bytes, want %d", len(blob), dimensions*4)
	}
	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// cosineSimilarity returns 0 for zero-length or zero-norm vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
