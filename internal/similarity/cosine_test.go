package similarity_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localrag/internal/embedding/features"
	"localrag/internal/similarity"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical vectors", []float64{1, 0, 0}, []float64{1, 0, 0}, 1},
		{"orthogonal vectors", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite vectors", []float64{1, 0}, []float64{-1, 0}, -1},
		{"scaled vectors", []float64{1, 2, 3}, []float64{2, 4, 6}, 1},
		{"45 degrees", []float64{1, 0}, []float64{1, 1}, math.Sqrt2 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := similarity.CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := features.GenerateEmbedding("retrieval augmented generation")
	got, err := similarity.CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	a := make([]float64, 384)
	b := make([]float64, 10)
	_, err := similarity.CosineSimilarity(a, b)
	require.ErrorIs(t, err, similarity.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "384 != 10")
}

func TestCosineSimilarity_ZeroVectorIsNaN(t *testing.T) {
	got, err := similarity.CosineSimilarity([]float64{0, 0}, []float64{1, 0})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestDot(t *testing.T) {
	got, err := similarity.Dot([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 32.0, got)

	_, err = similarity.Dot([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, similarity.ErrDimensionMismatch)
}

func TestNormAndIsZero(t *testing.T) {
	assert.Equal(t, 5.0, similarity.Norm([]float64{3, 4}))
	assert.True(t, similarity.IsZero([]float64{0, 0, 0}))
	assert.True(t, similarity.IsZero(nil))
	assert.False(t, similarity.IsZero([]float64{0, 1e-12}))
}
