package embed

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	var sum float64
	for _, x := range v {
		sum += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
}

func TestNormalizeZeroVector(t *testing.T) {
	_, err := Normalize([]float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-1, -1}), 1e-9)
	assert.Zero(t, Cosine([]float64{1}, []float64{1, 2}))
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 2}))
}

func TestLoadAPIKey(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "google_ai_key")
	require.NoError(t, os.WriteFile(good, []byte("  abc123\n"), 0o600))
	key, err := LoadAPIKey(good)
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)

	blank := filepath.Join(dir, "blank")
	require.NoError(t, os.WriteFile(blank, []byte("\n\n"), 0o600))
	_, err = LoadAPIKey(blank)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = LoadAPIKey(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(t.Context(), "", "", 0)
	assert.ErrorIs(t, err, ErrEmptyKey)
}
