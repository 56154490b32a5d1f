package knowledge

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/avvvet/krishiseva/internal/models"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbedder is a mock for llm.Embedder.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockVectorIndex is a mock for VectorIndex.
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Query(ctx context.Context, vec []float32, k int, filter string) ([]Match, error) {
	args := m.Called(ctx, vec, k, filter)
	if v := args.Get(0); v != nil {
		return v.([]Match), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRetriever(e *MockEmbedder, idx *MockVectorIndex) *Retriever {
	return NewRetriever(e, idx, RetrieverOptions{Logger: log.New(io.Discard)})
}

func match(content, category string, distance float64) Match {
	return Match{Content: content, Metadata: models.DocumentMetadata{Category: category}, Distance: distance}
}

func TestRetriever_VectorPath(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockVectorIndex)
	vec := []float32{0.1, 0.2}

	e.On("Embed", mock.Anything, "rice blast").Return(vec, nil)
	idx.On("Query", mock.Anything, vec, 4, "crop_disease_identification").Return([]Match{
		match("far", "crop_disease_identification", 0.6),
		match("near", "crop_disease_identification", 0.1),
		match("other category", "pest_management", 0.05),
		match("negative distance", "crop_disease_identification", -0.2),
	}, nil)

	out := newTestRetriever(e, idx).Retrieve(context.Background(), "rice blast", "crop_disease_identification", 2)

	assert.Equal(t, models.StatusOK, out.Status)
	require.Len(t, out.Value, 2)
	assert.Equal(t, "negative distance", out.Value[0].Content)
	assert.Equal(t, 1.0, out.Value[0].Similarity)
	assert.Equal(t, "near", out.Value[1].Content)
	assert.InDelta(t, 0.9, out.Value[1].Similarity, 1e-9)
	e.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestRetriever_SimilarityBoundsAndOrder(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockVectorIndex)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx.On("Query", mock.Anything, mock.Anything, 6, "").Return([]Match{
		match("a", "x", 1.7),
		match("b", "y", 0.3),
		match("c", "z", 0.3),
		match("d", "z", 0),
	}, nil)

	out := newTestRetriever(e, idx).Retrieve(context.Background(), "q", "", 3)
	require.Len(t, out.Value, 3)
	for i, d := range out.Value {
		assert.GreaterOrEqual(t, d.Similarity, 0.0)
		assert.LessOrEqual(t, d.Similarity, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, out.Value[i-1].Similarity, d.Similarity)
		}
	}
	// equal similarities keep index order
	assert.Equal(t, []string{"d", "b", "c"}, []string{out.Value[0].Content, out.Value[1].Content, out.Value[2].Content})
}

func TestRetriever_EmbedFailureFallsBack(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockVectorIndex)
	e.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("embedding service down"))

	out := newTestRetriever(e, idx).Retrieve(context.Background(), "My rice leaves have brown spots", "", 3)

	assert.True(t, out.IsDegraded())
	assert.Equal(t, models.ReasonRetrievalDegraded, out.Reason)
	require.NotEmpty(t, out.Value)
	assert.Equal(t, "paddy", out.Value[0].Metadata.Crop)
	assert.InDelta(t, 0.6, out.Value[0].Similarity, 1e-9)
	idx.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_IndexFailureFallsBack(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockVectorIndex)
	e.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	out := newTestRetriever(e, idx).Retrieve(context.Background(), "fertilizer for banana", "fertilizer_advice", 3)

	assert.True(t, out.IsDegraded())
	require.Len(t, out.Value, 3)
	assert.Equal(t, "banana", out.Value[0].Metadata.Crop)
	assert.Equal(t, "banana", out.Value[1].Metadata.Crop)
	for _, d := range out.Value {
		assert.Equal(t, "fertilizer_advice", d.Metadata.Category)
		assert.LessOrEqual(t, d.Similarity, 0.8)
	}
}

func TestRetriever_FallbackNeverFails(t *testing.T) {
	e := new(MockEmbedder)
	e.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	out := newTestRetriever(e, new(MockVectorIndex)).Retrieve(context.Background(), "hello there", "", 3)
	assert.True(t, out.IsDegraded())
	assert.NotNil(t, out.Value)
	assert.Empty(t, out.Value)
}

func TestRetriever_NoBackendUsesKeywords(t *testing.T) {
	r := NewRetriever(nil, nil, RetrieverOptions{Logger: log.New(io.Discard)})
	out := r.Retrieve(context.Background(), "drip irrigation water for banana", "", 0)

	assert.Equal(t, models.StatusOK, out.Status)
	require.Len(t, out.Value, DefaultTopK)
	categories := make([]string, 0, len(out.Value))
	for _, d := range out.Value {
		assert.Equal(t, "banana", d.Metadata.Crop)
		assert.InDelta(t, 0.6, d.Similarity, 1e-9)
		categories = append(categories, d.Metadata.Category)
	}
	assert.Contains(t, categories, "irrigation_advice")
}

func TestKeywordSearch_Scoring(t *testing.T) {
	r := NewRetriever(nil, nil, RetrieverOptions{Logger: log.New(io.Discard)})

	tests := []struct {
		name  string
		query string
		top   float64
	}{
		{"crop and bucket", "paddy water depth", 0.6},
		{"crop only", "tell me about tomato", 0.4},
		{"bucket only", "which fungicide", 0.2},
		{"malayalam crop", "നെല്ല് രോഗം", 0.6},
		{"bucket counts for any category", "banana water needs", 0.6},
		{"two buckets", "compost and drip for pepper", 0.8},
		{"price is not rice", "price today", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := r.KeywordSearch(tt.query, "", 3)
			if tt.top == 0 {
				assert.Empty(t, docs)
				return
			}
			require.NotEmpty(t, docs)
			assert.InDelta(t, tt.top, docs[0].Similarity, 1e-9)
		})
	}
}

func TestKeywordSearch_BucketIgnoresCategory(t *testing.T) {
	r := NewRetriever(nil, nil, RetrieverOptions{Logger: log.New(io.Discard)})

	docs := r.KeywordSearch("banana water needs", "", 20)
	require.Len(t, docs, len(Corpus()))
	for _, d := range docs[:3] {
		assert.Equal(t, "banana", d.Metadata.Crop)
		assert.InDelta(t, 0.6, d.Similarity, 1e-9)
	}
	assert.Equal(t, "fertilizer_advice", docs[0].Metadata.Category)

	docs = r.KeywordSearch("fertilizer", "", 20)
	require.Len(t, docs, len(Corpus()))
	for _, d := range docs {
		assert.InDelta(t, 0.2, d.Similarity, 1e-9)
	}
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, "", CategoryFor(models.IntentGeneralAdvice))
	assert.Equal(t, "", CategoryFor(models.IntentGeneralQuery))
	assert.Equal(t, "pest_management", CategoryFor(models.IntentPestManagement))
}
