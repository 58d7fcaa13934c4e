package baseline

import (
	"math"
)

// AnnotationEntry is a compound with its candidate reference analyses.
type AnnotationEntry struct {
	Compound Construction    `json:"compound"`
	Analyses [][]Construction `json:"analyses"`
}

// Annotations holds reference analyses in load order. A compound loaded
// twice keeps its first position and its last analyses.
type Annotations struct {
	order   []string
	entries map[string]AnnotationEntry
}

func NewAnnotations(entries []AnnotationEntry) *Annotations {
	a := &Annotations{entries: make(map[string]AnnotationEntry, len(entries))}
	for _, e := range entries {
		a.Add(e)
	}
	return a
}

// Add inserts or replaces the analyses of a compound. Entries without
// analyses are ignored.
func (a *Annotations) Add(e AnnotationEntry) {
	if len(e.Analyses) == 0 {
		return
	}
	key := e.Compound.Key()
	if _, ok := a.entries[key]; !ok {
		a.order = append(a.order, key)
	}
	a.entries[key] = e
}

// Types returns the number of annotated compound types.
func (a *Annotations) Types() int {
	return len(a.order)
}

// Entries returns the annotations in load order.
func (a *Annotations) Entries() []AnnotationEntry {
	out := make([]AnnotationEntry, len(a.order))
	for i, key := range a.order {
		out[i] = a.entries[key]
	}
	return out
}

// Analyses returns the reference analyses of c.
func (a *Annotations) Analyses(c Construction) ([][]Construction, bool) {
	e, ok := a.entries[c.Key()]
	return e.Analyses, ok
}

// SetAnnotations enables semi-supervised training. A nil weight balances the
// annotated data against the corpus after every epoch.
func (m *Model) SetAnnotations(a *Annotations, weight *float64) {
	m.annotations = a
	m.annot = newAnnotatedEncoding(m.corpus, weight, m.penalty)
	m.annot.boundaries = a.Types()
}

// AnnotatedWeight returns the weight of the annotated cost and whether
// annotations are in use.
func (m *Model) AnnotatedWeight() (float64, bool) {
	if m.annot == nil {
		return 0, false
	}
	return m.annot.weight, true
}

// updateAnnotationChoices selects, per annotated compound, the analysis the
// current model finds cheapest and rebuilds the annotated accumulator from
// those choices.
func (m *Model) updateAnnotationChoices() {
	if m.annot == nil {
		return
	}
	constructions := make(map[string]int)
	for _, e := range m.annotations.Entries() {
		analysis, _ := m.bestAnalysis(e.Analyses)
		rootCount := 0
		if n, ok := m.analyses[e.Compound.Key()]; ok {
			rootCount = n.rootCount
		}
		for _, c := range analysis {
			constructions[c.Key()] += rootCount
		}
	}
	m.annot.setConstructions(constructions)
	for key := range constructions {
		count := 0
		if n, ok := m.analyses[key]; ok && len(n.splitLocs) == 0 {
			count = n.count
		}
		m.annot.updateCount(key, -1, count)
	}
}

// bestAnalysis returns the analysis with the lowest corpus code length.
// Constructions absent from the lexicon cost the penalty.
func (m *Model) bestAnalysis(choices [][]Construction) ([]Construction, float64) {
	var logTokens float64
	if m.corpus.tokens > 0 {
		logTokens = math.Log(float64(m.corpus.tokens))
	}
	var best []Construction
	bestCost := math.Inf(1)
	for _, analysis := range choices {
		cost := 0.0
		for _, c := range analysis {
			if n, ok := m.analyses[c.Key()]; ok && len(n.splitLocs) == 0 {
				cost += logTokens - math.Log(float64(n.count))
			} else {
				cost -= m.penalty
			}
		}
		if best == nil || cost < bestCost {
			best, bestCost = analysis, cost
		}
	}
	return best, bestCost
}
