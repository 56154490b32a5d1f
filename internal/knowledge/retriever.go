package knowledge

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/avvvet/krishiseva/internal/llm"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
)

const (
	DefaultTopK    = 3
	DefaultTimeout = 5 * time.Second

	fallbackCeiling = 0.8
	cropScore       = 2
	bucketScore     = 1
)

// ErrNoIndex is recorded when the retriever runs without a vector backend.
var ErrNoIndex = errors.New("no vector index configured")

// RetrieverOptions configures a Retriever.
type RetrieverOptions struct {
	Timeout time.Duration
	Corpus  []Document
	Logger  *log.Logger
}

// Retriever finds knowledge documents for a question. It embeds the query
// and searches the vector index, falling back to keyword scoring over the
// built-in corpus when either collaborator fails.
type Retriever struct {
	embedder llm.Embedder
	index    VectorIndex
	corpus   []Document
	timeout  time.Duration
	logger   *log.Logger
}

// NewRetriever builds a retriever. embedder and index may be nil, in which
// case every call is served by the keyword scorer.
func NewRetriever(embedder llm.Embedder, index VectorIndex, opts RetrieverOptions) *Retriever {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Corpus == nil {
		opts.Corpus = Corpus()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		corpus:   opts.Corpus,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// CategoryFor maps an intent to the category filter used for retrieval.
// General advice searches every category.
func CategoryFor(in models.Intent) string {
	switch in {
	case models.IntentGeneralAdvice, models.IntentGeneralQuery, "":
		return ""
	default:
		return string(in)
	}
}

// Retrieve returns at most topK documents ordered by similarity. It never
// fails: backend errors produce a Degraded outcome carrying keyword hits.
func (r *Retriever) Retrieve(ctx context.Context, query, category string, topK int) models.Outcome[[]models.KnowledgeDocument] {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if r.embedder == nil || r.index == nil {
		return models.Ok(r.KeywordSearch(query, category, topK))
	}

	docs, err := r.vectorSearch(ctx, query, category, topK)
	if err != nil {
		r.logger.Warn("vector search failed, using keyword fallback", "error", err)
		return models.Degraded(r.KeywordSearch(query, category, topK), models.ReasonRetrievalDegraded, err)
	}
	return models.Ok(docs)
}

func (r *Retriever) vectorSearch(ctx context.Context, query, category string, topK int) ([]models.KnowledgeDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.index.Query(ctx, vec, topK*2, category)
	if err != nil {
		return nil, err
	}

	docs := make([]models.KnowledgeDocument, 0, len(matches))
	for _, m := range matches {
		if category != "" && m.Metadata.Category != category {
			continue
		}
		docs = append(docs, models.KnowledgeDocument{
			Content:    m.Content,
			Metadata:   m.Metadata,
			Similarity: models.ClampConfidence(1 - m.Distance),
		})
	}
	return rank(docs, topK), nil
}

// KeywordSearch scores the built-in corpus: +2 when the document's crop is
// mentioned, +1 for each keyword bucket the query hits. Similarity is
// min(0.8, score/5).
func (r *Retriever) KeywordSearch(query, category string, topK int) []models.KnowledgeDocument {
	hits := 0
	for _, b := range buckets {
		if b.MatchString(query) {
			hits += bucketScore
		}
	}

	docs := []models.KnowledgeDocument{}
	for _, d := range r.corpus {
		if category != "" && d.Metadata.Category != category {
			continue
		}

		score := 0
		if cropMentioned(d.Metadata.Crop, query) {
			score += cropScore
		}
		score += hits
		if score == 0 {
			continue
		}

		docs = append(docs, models.KnowledgeDocument{
			Content:    d.Content,
			Metadata:   d.Metadata,
			Similarity: min(fallbackCeiling, float64(score)/5.0),
		})
	}
	return rank(docs, topK)
}

func rank(docs []models.KnowledgeDocument, topK int) []models.KnowledgeDocument {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Similarity > docs[j].Similarity
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs
}
