package knowledge

import (
	"context"
	"fmt"

	"github.com/avvvet/krishiseva/internal/llm"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSeedConcurrency bounds parallel embedding calls during Seed.
const DefaultSeedConcurrency = 4

// SeedOptions controls Seed.
type SeedOptions struct {
	// Concurrency bounds parallel embedding calls. Defaults to DefaultSeedConcurrency.
	Concurrency int
	// Force re-writes documents even when the index is not empty.
	Force  bool
	Logger *log.Logger
}

// Seed embeds docs and writes them to w. An index that already holds
// documents is left alone unless opts.Force is set. Returns how many
// documents were written.
func Seed(ctx context.Context, embedder llm.Embedder, w Writer, docs []Document, opts SeedOptions) (int, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultSeedConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	if !opts.Force {
		n, err := w.Count(ctx)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			opts.Logger.Info("knowledge index already populated", "documents", n)
			return 0, nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, doc := range docs {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, doc.EmbeddingText())
			if err != nil {
				return fmt.Errorf("embed %s: %w", doc.ID, err)
			}
			if err := w.Upsert(gctx, doc, vec); err != nil {
				return err
			}
			opts.Logger.Debug("seeded document", "id", doc.ID, "category", doc.Metadata.Category)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	opts.Logger.Info("knowledge index seeded", "documents", len(docs))
	return len(docs), nil
}
