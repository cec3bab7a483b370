package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_Basics(t *testing.T) {
	toks := Tokenize("Found wearing a NIKE jacket, eagle tattoo on left forearm.")
	assert.Contains(t, toks, "nike")
	assert.Contains(t, toks, "jacket")
	assert.Contains(t, toks, "eagle")
	assert.Contains(t, toks, "tattoo")
	// Adjacent-word phrases survive as units.
	assert.Contains(t, toks, "nike jacket")
	assert.Contains(t, toks, "eagle tattoo")
	// Stopwords and short fragments are dropped.
	assert.NotContains(t, toks, "found")
	assert.NotContains(t, toks, "wearing")
	assert.NotContains(t, toks, "a")
	assert.NotContains(t, toks, "on")
}

func TestTokenize_Deterministic(t *testing.T) {
	text := "Blue toboggan, Levis jeans, scar above right eyebrow"
	assert.Equal(t, Tokenize(text), Tokenize(text))
}

func TestTokenize_SortedAndDeduplicated(t *testing.T) {
	toks := Tokenize("tattoo tattoo zebra apple")
	seen := make(map[string]int)
	for _, tok := range toks {
		seen[tok]++
	}
	assert.Equal(t, 1, seen["tattoo"])
	assert.True(t, sortedStrings(toks))
}

func TestTokenize_EmptyAndPunctuationOnly(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("... --- !!!"))
}

func TestTokenize_MultipleFields(t *testing.T) {
	toks := Tokenize("red jacket", "toboggan")
	assert.Contains(t, toks, "jacket")
	assert.Contains(t, toks, "toboggan")
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.True(t, IsStopword("Remains"))
	assert.False(t, IsStopword("toboggan"))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
