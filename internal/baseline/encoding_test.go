package baseline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoding_UpdateCountIsInvertible(t *testing.T) {
	e := &encoding{weight: 1}
	e.updateCount("y", 0, 5)
	e.updateCount("y", 5, 0)

	assert.Zero(t, e.tokens)
	assert.Equal(t, 0.0, e.logTokenSum)
}

func TestEncoding_UpdateCountIsInvertibleOnBaseline(t *testing.T) {
	e := &encoding{weight: 1}
	e.updateCount("x", 0, 3)
	tokens, sum := e.tokens, e.logTokenSum

	e.updateCount("y", 0, 5)
	e.updateCount("y", 5, 0)

	assert.Equal(t, tokens, e.tokens)
	assert.InDelta(t, sum, e.logTokenSum, 1e-12)
}

func TestEncoding_UpdateCountIgnoresZeroAndOne(t *testing.T) {
	e := &encoding{weight: 1}
	e.updateCount("x", 0, 1)
	assert.Equal(t, 1, e.tokens)
	assert.Zero(t, e.logTokenSum)

	e.updateCount("x", 1, 2)
	assert.InDelta(t, 2*math.Log(2), e.logTokenSum, 1e-12)
}

func TestEncoding_NegativeCountPanics(t *testing.T) {
	e := &encoding{weight: 1}
	assert.Panics(t, func() { e.updateCount("x", 0, -1) })
}

func TestEncoding_EmptyCostIsZero(t *testing.T) {
	e := &encoding{weight: 1, tokens: 10, logTokenSum: 3}
	assert.Zero(t, e.cost(5))
}

func TestLogFactorial(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, math.Log(2)},
		{5, math.Log(120)},
		{19, math.Log(121645100408832000)},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, logFactorial(tt.n), 1e-9, "n=%d", tt.n)
	}

	// Stirling's approximation is within a fraction of a nat at n=20.
	exact, _ := math.Lgamma(21)
	assert.InDelta(t, exact, logFactorial(20), 0.01)
}

func TestEncoding_FrequencyDistributionNeedsTwoTypes(t *testing.T) {
	e := &encoding{weight: 1, tokens: 10, boundaries: 2}
	assert.Zero(t, e.frequencyDistributionCost(1))
	assert.Positive(t, e.frequencyDistributionCost(3))
}

func TestLexiconEncoding_AddRemove(t *testing.T) {
	l := newLexiconEncoding()
	l.add(Chars("abb"))
	l.add(Chars("b"))

	assert.Equal(t, 2, l.boundaries)
	assert.Equal(t, 4, l.tokens)
	assert.Equal(t, map[string]int{"a": 1, "b": 3}, l.atoms)
	assert.Equal(t, 3, l.types())

	l.remove(Chars("abb"))
	assert.Equal(t, 1, l.boundaries)
	assert.Equal(t, map[string]int{"b": 1}, l.atoms)

	l.remove(Chars("b"))
	assert.Zero(t, l.tokens)
	assert.Zero(t, l.logTokenSum)
	assert.Empty(t, l.atoms)
	require.Panics(t, func() { l.remove(Chars("b")) })
}

func TestLexiconEncoding_CodeLengthFavoursFrequentAtoms(t *testing.T) {
	l := newLexiconEncoding()
	for i := 0; i < 10; i++ {
		l.add(Construction{"a", string(rune('b' + i))})
	}
	common := l.codeLength(Chars("aa"))
	rare := l.codeLength(Chars("zz"))
	assert.Less(t, common, rare)
}

func TestAnnotatedEncoding_PenaltyForMissingConstructions(t *testing.T) {
	lex := newLexiconEncoding()
	corpus := newCorpusEncoding(lex, 1)
	w := 1.0
	a := newAnnotatedEncoding(corpus, &w, DefaultPenalty)
	a.setConstructions(map[string]int{"x": 2})
	assert.Equal(t, 2, a.tokens)

	a.updateCount("x", -1, 0)
	assert.InDelta(t, 2*DefaultPenalty, a.logTokenSum, 1e-9)

	a.updateCount("x", 0, 3)
	assert.InDelta(t, 2*math.Log(3), a.logTokenSum, 1e-9)

	a.updateCount("unrelated", 0, 3)
	assert.InDelta(t, 2*math.Log(3), a.logTokenSum, 1e-9)
}

func TestAnnotatedEncoding_AutoWeight(t *testing.T) {
	lex := newLexiconEncoding()
	corpus := newCorpusEncoding(lex, 2)
	corpus.boundaries = 100
	a := newAnnotatedEncoding(corpus, nil, DefaultPenalty)

	assert.True(t, a.updateWeight(10))
	assert.InDelta(t, 20.0, a.weight, 1e-12)
	assert.False(t, a.updateWeight(10))

	w := 3.0
	fixed := newAnnotatedEncoding(corpus, &w, DefaultPenalty)
	assert.False(t, fixed.updateWeight(10))
	assert.Equal(t, 3.0, fixed.weight)
}
