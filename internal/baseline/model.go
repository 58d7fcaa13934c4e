// Package baseline implements the Morfessor Baseline segmentation model: a
// construction store whose counts drive incrementally maintained MDL cost
// accumulators, the recursive and Viterbi optimisers that edit it, and the
// batch and online training loops.
//
// A Model is single-writer. Segment, Expand and the export methods only read
// the store and may run concurrently once training has finished.
package baseline

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"
)

// DefaultPenalty is the log-probability charged for an annotated
// construction that is missing from the lexicon.
const DefaultPenalty = -9999.9

// Rand is the random source used for shuffling, random skips and random
// initial splits. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// Config holds the construction-time settings of a Model.
type Config struct {
	// CorpusWeight multiplies the corpus cost. Zero means 1.0.
	CorpusWeight float64
	// ForceSplit lists atoms that always form a construction of their own.
	ForceSplit []string
	// UseSkips enables random skipping of frequently visited constructions.
	UseSkips bool
	// Seed seeds the default random source when Rand is nil. Zero seeds
	// from the clock.
	Seed int64
	Rand Rand
	// OnEpoch, when set, is called after every training epoch.
	OnEpoch EpochHook
	Logger  *slog.Logger
}

// node is the store entry of one construction. An empty splitLocs marks a
// real construction.
type node struct {
	atoms     Construction
	rootCount int
	count     int
	splitLocs []int
}

// Model is the construction store together with the cost accumulators it
// owns. All count edits go through modifyCount.
type Model struct {
	analyses map[string]*node

	lexicon *lexiconEncoding
	corpus  *corpusEncoding
	annot   *annotatedEncoding

	annotations *Annotations

	forceSplit map[string]struct{}
	useSkips   bool
	visits     map[string]int
	penalty    float64

	rng     Rand
	onEpoch EpochHook
	logger  *slog.Logger
}

// New creates an empty model.
func New(cfg Config) *Model {
	weight := cfg.CorpusWeight
	if weight == 0 {
		weight = 1.0
	}
	lexicon := newLexiconEncoding()
	m := &Model{
		analyses:   make(map[string]*node),
		lexicon:    lexicon,
		corpus:     newCorpusEncoding(lexicon, weight),
		forceSplit: make(map[string]struct{}, len(cfg.ForceSplit)),
		useSkips:   cfg.UseSkips,
		visits:     make(map[string]int),
		penalty:    DefaultPenalty,
		rng:        cfg.Rand,
		onEpoch:    cfg.OnEpoch,
		logger:     cfg.Logger,
	}
	for _, atom := range cfg.ForceSplit {
		m.forceSplit[atom] = struct{}{}
	}
	if m.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		m.rng = rand.New(rand.NewSource(seed))
	}
	if m.logger == nil {
		m.logger = slog.Default().With("component", "baseline")
	}
	return m
}

// Cost returns the current total description length of the model.
func (m *Model) Cost() float64 {
	cost := m.corpus.cost() + m.lexicon.cost()
	if m.annot != nil {
		cost += m.annot.cost()
	}
	return cost
}

// CorpusWeight returns the weight of the corpus cost.
func (m *Model) CorpusWeight() float64 {
	return m.corpus.weight
}

// SetCorpusWeight replaces the weight of the corpus cost.
func (m *Model) SetCorpusWeight(w float64) {
	m.corpus.weight = w
}

// LexiconSize returns the number of real constructions.
func (m *Model) LexiconSize() int {
	return m.lexicon.boundaries
}

// CorpusTokens returns the number of construction tokens in the corpus.
func (m *Model) CorpusTokens() int {
	return m.corpus.tokens
}

// CompoundTokens returns the number of compound tokens added to the model.
func (m *Model) CompoundTokens() int {
	return m.corpus.boundaries
}

// Supervised reports whether annotations contribute to the cost.
func (m *Model) Supervised() bool {
	return m.annot != nil
}

func (m *Model) addCompound(c Construction, count int) {
	m.corpus.boundaries += count
	m.modifyCount(c, count)
	if n := m.analyses[c.Key()]; n != nil {
		n.rootCount += count
	}
}

// modifyCount is the single entry point for count edits. Virtual
// constructions pass the delta on to their children; real constructions
// update the accumulators and enter or leave the lexicon on transitions
// through zero.
func (m *Model) modifyCount(c Construction, delta int) {
	key := c.Key()
	var count int
	var splitLocs []int
	n, ok := m.analyses[key]
	if ok {
		count, splitLocs = n.count, n.splitLocs
	}
	newCount := count + delta
	switch {
	case newCount < 0:
		panic(&InvariantError{Construction: key, Count: newCount, Reason: "count dropped below zero"})
	case newCount == 0:
		delete(m.analyses, key)
	case ok:
		n.count = newCount
	default:
		m.analyses[key] = &node{atoms: c, count: newCount}
	}

	if len(splitLocs) > 0 {
		for _, child := range splitAt(c, splitLocs) {
			m.modifyCount(child, delta)
		}
		return
	}

	m.corpus.updateCount(key, count, newCount)
	if m.annot != nil {
		m.annot.updateCount(key, count, newCount)
	}
	switch {
	case count == 0 && newCount > 0:
		m.lexicon.add(c)
	case count > 0 && newCount == 0:
		m.lexicon.remove(c)
	}
}

// remove zeroes the contribution of c and returns its previous root count
// and count.
func (m *Model) remove(c Construction) (rootCount, count int) {
	n, ok := m.analyses[c.Key()]
	if !ok {
		return 0, 0
	}
	rootCount, count = n.rootCount, n.count
	m.modifyCount(c, -count)
	return rootCount, count
}

// putNode stores a node without touching the accumulators. Nodes that would
// hold nothing are dropped.
func (m *Model) putNode(c Construction, rootCount, count int, splitLocs []int) {
	if count == 0 && rootCount == 0 {
		delete(m.analyses, c.Key())
		return
	}
	m.analyses[c.Key()] = &node{atoms: c, rootCount: rootCount, count: count, splitLocs: splitLocs}
}

// setReal makes c a real construction carrying count occurrences.
func (m *Model) setReal(c Construction, rootCount, count int) {
	m.analyses[c.Key()] = &node{atoms: c, rootCount: rootCount}
	m.modifyCount(c, count)
}

// Expand returns the real constructions that c decomposes into.
func (m *Model) Expand(c Construction) []Construction {
	n, ok := m.analyses[c.Key()]
	if !ok || len(n.splitLocs) == 0 {
		return []Construction{c}
	}
	var out []Construction
	for _, child := range splitAt(c, n.splitLocs) {
		out = append(out, m.Expand(child)...)
	}
	return out
}

// Compounds returns every construction with a positive root count, sorted by
// key.
func (m *Model) Compounds() []Construction {
	keys := make([]string, 0, len(m.analyses))
	for key, n := range m.analyses {
		if n.rootCount > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]Construction, len(keys))
	for i, key := range keys {
		out[i] = m.analyses[key].atoms
	}
	return out
}

// LexiconEntry is a real construction and its count.
type LexiconEntry struct {
	Construction Construction
	Count        int
}

// Constructions returns all real constructions with their counts, sorted by
// key.
func (m *Model) Constructions() []LexiconEntry {
	keys := make([]string, 0, len(m.analyses))
	for key, n := range m.analyses {
		if len(n.splitLocs) == 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]LexiconEntry, len(keys))
	for i, key := range keys {
		n := m.analyses[key]
		out[i] = LexiconEntry{Construction: n.atoms, Count: n.count}
	}
	return out
}

// SegmentationEntry is a compound count and its segmentation.
type SegmentationEntry struct {
	Count    int
	Segments []Construction
}

// Segmentations returns every compound with a positive root count expanded
// into real constructions, sorted by compound.
func (m *Model) Segmentations() []SegmentationEntry {
	compounds := m.Compounds()
	out := make([]SegmentationEntry, len(compounds))
	for i, c := range compounds {
		out[i] = SegmentationEntry{
			Count:    m.analyses[c.Key()].rootCount,
			Segments: m.Expand(c),
		}
	}
	return out
}

// forceSplitParts cuts c around every force-split atom after the first
// position.
func (m *Model) forceSplitParts(c Construction) []Construction {
	if len(m.forceSplit) == 0 {
		return []Construction{c}
	}
	var parts []Construction
	j := 0
	for i := 1; i < len(c); i++ {
		if _, ok := m.forceSplit[c[i]]; !ok {
			continue
		}
		if i > j {
			parts = append(parts, c[j:i])
		}
		parts = append(parts, c[i:i+1])
		j = i + 1
	}
	if j < len(c) {
		parts = append(parts, c[j:])
	}
	return parts
}

// testSkip reports whether c should be skipped on this visit.
func (m *Model) testSkip(c Construction) bool {
	key := c.Key()
	if t, ok := m.visits[key]; ok {
		if m.rng.Float64() > 1.0/float64(max(1, t)) {
			return true
		}
	}
	m.visits[key]++
	return false
}

func (m *Model) randomSplit(c Construction, prob float64) []Construction {
	var locs []int
	for i := 1; i < len(c); i++ {
		if m.rng.Float64() < prob {
			locs = append(locs, i)
		}
	}
	return splitAt(c, locs)
}
