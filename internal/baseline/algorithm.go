package baseline

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// Algorithm selects the optimiser used during training.
type Algorithm int

const (
	Recursive Algorithm = iota + 1
	Viterbi
)

// ParseAlgorithm maps "recursive" and "viterbi" to their Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "recursive":
		return Recursive, nil
	case "viterbi":
		return Viterbi, nil
	default:
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) String() string {
	switch a {
	case Recursive:
		return "recursive"
	case Viterbi:
		return "viterbi"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// Params configures an optimiser. AddCount and MaxLen only apply to Viterbi.
type Params struct {
	Algorithm Algorithm
	AddCount  float64
	MaxLen    int
}

// DefaultMaxLen bounds the construction length considered by Viterbi.
const DefaultMaxLen = 30

func DefaultParams() Params {
	return Params{Algorithm: Recursive, MaxLen: DefaultMaxLen}
}

// optimizer re-optimises one compound in place and returns its new
// segmentation.
type optimizer interface {
	optimize(c Construction) []Construction
}

type recursiveOptimizer struct {
	m *Model
}

func (o recursiveOptimizer) optimize(c Construction) []Construction {
	return o.m.recursiveOptimize(c)
}

type viterbiOptimizer struct {
	m        *Model
	addCount float64
	maxLen   int
}

func (o viterbiOptimizer) optimize(c Construction) []Construction {
	return o.m.viterbiOptimize(c, o.addCount, o.maxLen)
}

func (m *Model) optimizer(p Params) (optimizer, error) {
	switch p.Algorithm {
	case Recursive:
		return recursiveOptimizer{m: m}, nil
	case Viterbi:
		maxLen := p.MaxLen
		if maxLen <= 0 {
			maxLen = DefaultMaxLen
		}
		return viterbiOptimizer{m: m, addCount: p.AddCount, maxLen: maxLen}, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownAlgorithm, p.Algorithm.String())
	}
}

// Optimize re-optimises the analysis of compound c with the given
// algorithm.
func (m *Model) Optimize(c Construction, p Params) ([]Construction, error) {
	opt, err := m.optimizer(p)
	if err != nil {
		return nil, err
	}
	return opt.optimize(c), nil
}

func (m *Model) recursiveOptimize(c Construction) []Construction {
	if len(c) == 1 {
		return []Construction{c}
	}
	if m.useSkips && m.testSkip(c) {
		return m.Expand(c)
	}
	parts := m.forceSplitParts(c)
	if len(parts) == 1 {
		return m.recursiveSplit(c)
	}
	m.setFlat(c, parts)
	var out []Construction
	for _, part := range parts {
		out = append(out, m.recursiveSplit(part)...)
	}
	return out
}

// recursiveSplit tries every binary split of c against leaving it whole,
// commits the cheapest and recurses into both halves. A split is adopted
// when its cost is not above the best seen so far.
func (m *Model) recursiveSplit(c Construction) []Construction {
	if len(c) == 1 {
		return []Construction{c}
	}
	if m.useSkips && m.testSkip(c) {
		return m.Expand(c)
	}
	if _, ok := m.analyses[c.Key()]; !ok {
		return []Construction{c}
	}
	rootCount, count := m.remove(c)

	m.modifyCount(c, count)
	minCost := m.Cost()
	m.modifyCount(c, -count)

	best := 0
	for i := 1; i < len(c); i++ {
		prefix, suffix := c[:i], c[i:]
		m.modifyCount(prefix, count)
		m.modifyCount(suffix, count)
		cost := m.Cost()
		m.modifyCount(prefix, -count)
		m.modifyCount(suffix, -count)
		if cost <= minCost {
			minCost = cost
			best = i
		}
	}

	if best == 0 {
		m.setReal(c, rootCount, count)
		return []Construction{c}
	}

	m.putNode(c, rootCount, count, []int{best})
	prefix, suffix := c[:best], c[best:]
	m.modifyCount(prefix, count)
	m.modifyCount(suffix, count)
	left := m.recursiveSplit(prefix)
	if suffix.Equal(prefix) {
		out := make([]Construction, 0, 2*len(left))
		out = append(out, left...)
		return append(out, left...)
	}
	return append(left, m.recursiveSplit(suffix)...)
}

func (m *Model) viterbiOptimize(c Construction, addCount float64, maxLen int) []Construction {
	if len(c) == 1 {
		return []Construction{c}
	}
	if m.useSkips && m.testSkip(c) {
		return m.Expand(c)
	}
	var out []Construction
	for _, part := range m.forceSplitParts(c) {
		segments, _ := m.Segment(part, addCount, maxLen)
		out = append(out, segments...)
	}
	m.setFlat(c, out)
	return out
}

// Segment finds the cheapest segmentation of c under the current model by
// dynamic programming over atom positions. With addCount > 0 unseen
// constructions of any length are priced by additive smoothing; otherwise
// only unseen single atoms are allowed, at a fixed penalty. Segment does not
// modify the model.
func (m *Model) Segment(c Construction, addCount float64, maxLen int) ([]Construction, float64) {
	n := len(c)
	if n == 0 {
		return nil, 0
	}
	if maxLen <= 0 {
		maxLen = n
	}

	tokens := float64(m.corpus.tokens)
	var logTokens float64
	if tokens+addCount > 0 {
		logTokens = math.Log(tokens + addCount)
	}
	badLikelihood := float64(n)*logTokens + 1.0
	weight := m.corpus.weight
	lexB := float64(m.lexicon.boundaries)
	var lexBLogB float64
	if lexB > 0 {
		lexBLogB = lexB * math.Log(lexB)
	}

	type cell struct {
		cost float64
		prev int
		ok   bool
	}
	grid := make([]cell, n+1)
	grid[0] = cell{prev: -1, ok: true}

	for t := 1; t <= n; t++ {
		best := cell{prev: -1}
		for pt := max(0, t-maxLen); pt < t; pt++ {
			if !grid[pt].ok {
				continue
			}
			cost := grid[pt].cost
			span := c[pt:t]
			nd := m.analyses[span.Key()]
			switch {
			case nd != nil && len(nd.splitLocs) == 0:
				if nd.count <= 0 {
					panic(&InvariantError{Construction: span.Key(), Count: nd.count, Reason: "real construction without occurrences"})
				}
				cost += logTokens - math.Log(float64(nd.count)+addCount)
			case addCount > 0:
				if m.corpus.tokens == 0 {
					cost += (addCount*math.Log(addCount) + m.lexicon.codeLength(span)) / weight
				} else {
					cost += (logTokens - math.Log(addCount) +
						(lexB+addCount)*math.Log(lexB+addCount) - lexBLogB +
						m.lexicon.codeLength(span)) / weight
				}
			case len(span) == 1:
				cost += badLikelihood
			default:
				continue
			}
			if !best.ok || cost < best.cost {
				best = cell{cost: cost, prev: pt, ok: true}
			}
		}
		grid[t] = best
	}

	var segments []Construction
	end := n
	for pt := grid[n].prev; pt >= 0; pt = grid[pt].prev {
		segments = append(segments, c[pt:end])
		end = pt
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return segments, grid[n].cost
}
