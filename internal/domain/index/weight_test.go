package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightFuncName_IsValid(t *testing.T) {
	assert.True(t, WeightInverseLog.IsValid())
	assert.True(t, WeightLog10IDF.IsValid())
	assert.False(t, WeightFuncName("tfidf").IsValid())
}

func TestNewWeightFunc_Unknown(t *testing.T) {
	_, err := NewWeightFunc("bm25")
	assert.Error(t, err)
}

// Every weight function must be strictly decreasing in df, positive, and
// bounded over the whole df range.
func TestWeightFunc_StrictlyDecreasingPositiveBounded(t *testing.T) {
	const corpusSize = 40000
	for _, name := range []WeightFuncName{WeightInverseLog, WeightLog10IDF} {
		t.Run(string(name), func(t *testing.T) {
			fn, err := NewWeightFunc(name)
			require.NoError(t, err)

			prev := fn(1, corpusSize)
			assert.Greater(t, prev, 0.0)
			assert.Less(t, prev, 2.0)
			for _, df := range []int{2, 3, 5, 10, 100, 1000, corpusSize - 1, corpusSize} {
				w := fn(df, corpusSize)
				assert.Greater(t, w, 0.0, "df=%d", df)
				assert.Less(t, w, prev, "df=%d not strictly below df' < df", df)
				prev = w
			}
		})
	}
}

func TestLog10IDFWeight_NormalizedRange(t *testing.T) {
	fn, err := NewWeightFunc(WeightLog10IDF)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fn(1, 10000), 1e-9)
	assert.Less(t, fn(5000, 10000), 0.5)
}
