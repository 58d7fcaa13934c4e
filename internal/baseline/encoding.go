package baseline

import (
	"math"
)

var log2pi = math.Log(2 * math.Pi)

// logFactorial returns log(n!), using Stirling's approximation from 20 up.
func logFactorial(n int) float64 {
	if n < 2 {
		return 0
	}
	if n < 20 {
		f := 1.0
		for i := 2; i <= n; i++ {
			f *= float64(i)
		}
		return math.Log(f)
	}
	x := float64(n)
	logn := math.Log(x)
	return x*logn - x + 0.5*(logn+log2pi)
}

// xlogx returns x*log(x), or 0 for x <= 1.
func xlogx(x int) float64 {
	if x <= 1 {
		return 0
	}
	f := float64(x)
	return f * math.Log(f)
}

// encoding holds the sufficient statistics of one population of countable
// units. Only updateCount mutates tokens and logTokenSum.
type encoding struct {
	logTokenSum float64
	tokens      int
	boundaries  int
	weight      float64
}

func (e *encoding) updateCount(key string, oldCount, newCount int) {
	if newCount < 0 {
		panic(&InvariantError{Construction: key, Count: newCount, Reason: "negative count"})
	}
	e.tokens += newCount - oldCount
	e.logTokenSum -= xlogx(oldCount)
	e.logTokenSum += xlogx(newCount)
}

func (e *encoding) frequencyDistributionCost(types int) float64 {
	if types < 2 {
		return 0
	}
	tokens := e.tokens + e.boundaries
	return logFactorial(tokens-1) - logFactorial(types-1) - logFactorial(tokens-types)
}

func (e *encoding) permutationsCost() float64 {
	return -logFactorial(e.boundaries)
}

// cost returns the total description length of the population given the
// number of distinct types it is drawn from.
func (e *encoding) cost(types int) float64 {
	if e.boundaries == 0 {
		return 0
	}
	n := float64(e.tokens + e.boundaries)
	b := float64(e.boundaries)
	return (n*math.Log(n)-b*math.Log(b)-e.logTokenSum)*e.weight +
		e.permutationsCost() +
		e.frequencyDistributionCost(types)
}

// lexiconEncoding codes the lexicon as a string of atoms. Its boundaries
// count the real constructions and its tokens count atom occurrences.
type lexiconEncoding struct {
	encoding
	atoms map[string]int
}

func newLexiconEncoding() *lexiconEncoding {
	return &lexiconEncoding{
		encoding: encoding{weight: 1.0},
		atoms:    make(map[string]int),
	}
}

func (l *lexiconEncoding) types() int {
	return len(l.atoms) + 1
}

func (l *lexiconEncoding) add(c Construction) {
	l.boundaries++
	for _, atom := range c {
		n := l.atoms[atom]
		l.atoms[atom] = n + 1
		l.updateCount(atom, n, n+1)
	}
}

func (l *lexiconEncoding) remove(c Construction) {
	l.boundaries--
	for _, atom := range c {
		n := l.atoms[atom]
		if n <= 0 {
			panic(&InvariantError{Construction: atom, Count: n - 1, Reason: "atom removed more often than added"})
		}
		if n == 1 {
			delete(l.atoms, atom)
		} else {
			l.atoms[atom] = n - 1
		}
		l.updateCount(atom, n, n-1)
	}
}

func (l *lexiconEncoding) cost() float64 {
	return l.encoding.cost(l.types())
}

// codeLength estimates the cost of adding a construction that is not yet in
// the lexicon.
func (l *lexiconEncoding) codeLength(c Construction) float64 {
	n := float64(len(c) + 1)
	cost := n * math.Log(float64(l.tokens)+n)
	if l.boundaries > 0 {
		cost -= math.Log(float64(l.boundaries))
	}
	for _, atom := range c {
		f := 1
		if v, ok := l.atoms[atom]; ok && v > 0 {
			f = v
		}
		cost -= math.Log(float64(f))
	}
	return cost
}

// corpusEncoding codes the corpus as pointers into the lexicon. Its
// boundaries count compound tokens.
type corpusEncoding struct {
	encoding
	lexicon *lexiconEncoding
}

func newCorpusEncoding(lexicon *lexiconEncoding, weight float64) *corpusEncoding {
	return &corpusEncoding{
		encoding: encoding{weight: weight},
		lexicon:  lexicon,
	}
}

func (c *corpusEncoding) types() int {
	return c.lexicon.boundaries
}

func (c *corpusEncoding) cost() float64 {
	return c.encoding.cost(c.types())
}

// annotatedEncoding codes the annotated compounds with the corpus model.
// Only constructions selected from the annotations contribute.
type annotatedEncoding struct {
	encoding
	corpus        *corpusEncoding
	constructions map[string]int
	autoWeight    bool
	penalty       float64
}

func newAnnotatedEncoding(corpus *corpusEncoding, weight *float64, penalty float64) *annotatedEncoding {
	a := &annotatedEncoding{
		corpus:        corpus,
		constructions: make(map[string]int),
		autoWeight:    weight == nil,
		penalty:       penalty,
	}
	if weight != nil {
		a.weight = *weight
	}
	return a
}

// setConstructions replaces the selected annotated constructions and clears
// the accumulated statistics; the caller re-primes them via updateCount.
func (a *annotatedEncoding) setConstructions(constructions map[string]int) {
	a.constructions = constructions
	a.tokens = 0
	for _, f := range constructions {
		a.tokens += f
	}
	a.logTokenSum = 0
}

// updateCount tracks the log-probability of the annotated constructions under
// the current corpus counts. An oldCount of -1 primes a fresh entry.
func (a *annotatedEncoding) updateCount(key string, oldCount, newCount int) {
	f, ok := a.constructions[key]
	if !ok {
		return
	}
	if newCount < 0 {
		panic(&InvariantError{Construction: key, Count: newCount, Reason: "negative annotated count"})
	}
	af := float64(f)
	if oldCount > 1 {
		a.logTokenSum -= af * math.Log(float64(oldCount))
	}
	if newCount > 1 {
		a.logTokenSum += af * math.Log(float64(newCount))
	}
	if oldCount == 0 {
		a.logTokenSum -= af * a.penalty
	}
	if newCount == 0 {
		a.logTokenSum += af * a.penalty
	}
}

// updateWeight balances the annotated data against the corpus when the
// weight was not set by hand. It reports whether the weight changed.
func (a *annotatedEncoding) updateWeight(annotatedTypes int) bool {
	if !a.autoWeight || annotatedTypes == 0 {
		return false
	}
	old := a.weight
	a.weight = a.corpus.weight * float64(a.corpus.boundaries) / float64(annotatedTypes)
	return a.weight != old
}

func (a *annotatedEncoding) cost() float64 {
	if a.boundaries == 0 || a.corpus.boundaries == 0 {
		return 0
	}
	n := float64(a.tokens + a.boundaries)
	corpusN := float64(a.corpus.tokens + a.corpus.boundaries)
	return (n*math.Log(corpusN) -
		float64(a.boundaries)*math.Log(float64(a.corpus.boundaries)) -
		a.logTokenSum) * a.weight
}
