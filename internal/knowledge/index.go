package knowledge

import (
	"context"
	"errors"

	"github.com/avvvet/krishiseva/internal/models"
)

// ErrDimension is returned when a vector does not match the index width.
var ErrDimension = errors.New("vector dimension mismatch")

// Match is a raw hit from a vector index. Distance is cosine distance.
type Match struct {
	ID       string
	Content  string
	Metadata models.DocumentMetadata
	Distance float64
}

// Document is a corpus entry ready to be written to an index.
type Document struct {
	ID       string
	Content  string
	Keywords string
	Metadata models.DocumentMetadata
}

// EmbeddingText is what gets embedded for d.
func (d Document) EmbeddingText() string {
	if d.Keywords == "" {
		return d.Content
	}
	return d.Content + " " + d.Keywords
}

// VectorIndex finds the k nearest documents to vec. A non-empty filter
// restricts hits to that category.
type VectorIndex interface {
	Query(ctx context.Context, vec []float32, k int, filter string) ([]Match, error)
}

// Writer is implemented by indexes that can be seeded.
type Writer interface {
	Upsert(ctx context.Context, doc Document, vec []float32) error
	Count(ctx context.Context) (int, error)
}

// Index is a seedable vector index.
type Index interface {
	VectorIndex
	Writer
	Close() error
}
