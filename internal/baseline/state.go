package baseline

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// StateVersion is bumped whenever State changes incompatibly.
const StateVersion = 1

// NodeState is the serialised form of one store entry.
type NodeState struct {
	Atoms     []string `json:"atoms"`
	RootCount int      `json:"root_count,omitempty"`
	Count     int      `json:"count"`
	SplitLocs []int    `json:"split_locs,omitempty"`
}

// EncodingState is the serialised form of one cost accumulator.
type EncodingState struct {
	Tokens      int     `json:"tokens"`
	Boundaries  int     `json:"boundaries"`
	LogTokenSum float64 `json:"log_token_sum"`
	Weight      float64 `json:"weight"`
}

// AnnotatedState is the serialised semi-supervised part of a model.
type AnnotatedState struct {
	Encoding      EncodingState     `json:"encoding"`
	AutoWeight    bool              `json:"auto_weight"`
	Constructions map[string]int    `json:"constructions"`
	Annotations   []AnnotationEntry `json:"annotations"`
}

// State is a complete snapshot of a model. Restoring it reproduces every
// count, split point, accumulator and weight exactly.
type State struct {
	Version      int             `json:"version"`
	Nodes        []NodeState     `json:"nodes"`
	Lexicon      EncodingState   `json:"lexicon"`
	LexiconAtoms map[string]int  `json:"lexicon_atoms"`
	Corpus       EncodingState   `json:"corpus"`
	Annotated    *AnnotatedState `json:"annotated,omitempty"`
	ForceSplit   []string        `json:"force_split,omitempty"`
	UseSkips     bool            `json:"use_skips,omitempty"`
	Penalty      float64         `json:"penalty"`
}

func encodingState(e *encoding) EncodingState {
	return EncodingState{
		Tokens:      e.tokens,
		Boundaries:  e.boundaries,
		LogTokenSum: e.logTokenSum,
		Weight:      e.weight,
	}
}

func (s EncodingState) restore(e *encoding) {
	e.tokens = s.Tokens
	e.boundaries = s.Boundaries
	e.logTokenSum = s.LogTokenSum
	e.weight = s.Weight
}

// State returns a snapshot of the model. Nodes are sorted by key.
func (m *Model) State() *State {
	keys := make([]string, 0, len(m.analyses))
	for key := range m.analyses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s := &State{
		Version:      StateVersion,
		Nodes:        make([]NodeState, len(keys)),
		Lexicon:      encodingState(&m.lexicon.encoding),
		LexiconAtoms: make(map[string]int, len(m.lexicon.atoms)),
		Corpus:       encodingState(&m.corpus.encoding),
		UseSkips:     m.useSkips,
		Penalty:      m.penalty,
	}
	for i, key := range keys {
		n := m.analyses[key]
		s.Nodes[i] = NodeState{
			Atoms:     append([]string(nil), n.atoms...),
			RootCount: n.rootCount,
			Count:     n.count,
			SplitLocs: append([]int(nil), n.splitLocs...),
		}
	}
	for atom, f := range m.lexicon.atoms {
		s.LexiconAtoms[atom] = f
	}
	for atom := range m.forceSplit {
		s.ForceSplit = append(s.ForceSplit, atom)
	}
	sort.Strings(s.ForceSplit)
	if m.annot != nil {
		constructions := make(map[string]int, len(m.annot.constructions))
		for k, v := range m.annot.constructions {
			constructions[k] = v
		}
		s.Annotated = &AnnotatedState{
			Encoding:      encodingState(&m.annot.encoding),
			AutoWeight:    m.annot.autoWeight,
			Constructions: constructions,
			Annotations:   m.annotations.Entries(),
		}
	}
	return s
}

// FromState rebuilds a model from a snapshot. cfg supplies the runtime
// collaborators (random source, logger, epoch hook); the cost settings come
// from the snapshot.
func FromState(s *State, cfg Config) (*Model, error) {
	if s.Version != StateVersion {
		return nil, fmt.Errorf("%w: unsupported model version %d", apperrors.ErrInvalidInput, s.Version)
	}
	cfg.ForceSplit = s.ForceSplit
	cfg.UseSkips = s.UseSkips
	cfg.CorpusWeight = s.Corpus.Weight
	m := New(cfg)
	m.penalty = s.Penalty

	for _, ns := range s.Nodes {
		if ns.Count <= 0 {
			return nil, fmt.Errorf("%w: node %q has count %d", apperrors.ErrInconsistentState, ns.Atoms, ns.Count)
		}
		c := Construction(append([]string(nil), ns.Atoms...))
		key := c.Key()
		if _, dup := m.analyses[key]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", apperrors.ErrInconsistentState, ns.Atoms)
		}
		for _, loc := range ns.SplitLocs {
			if loc <= 0 || loc >= len(c) {
				return nil, fmt.Errorf("%w: node %q has split point %d", apperrors.ErrInconsistentState, ns.Atoms, loc)
			}
		}
		m.analyses[key] = &node{
			atoms:     c,
			rootCount: ns.RootCount,
			count:     ns.Count,
			splitLocs: append([]int(nil), ns.SplitLocs...),
		}
	}
	s.Lexicon.restore(&m.lexicon.encoding)
	for atom, f := range s.LexiconAtoms {
		m.lexicon.atoms[atom] = f
	}
	s.Corpus.restore(&m.corpus.encoding)

	if s.Annotated != nil {
		m.annotations = NewAnnotations(s.Annotated.Annotations)
		m.annot = newAnnotatedEncoding(m.corpus, nil, m.penalty)
		m.annot.autoWeight = s.Annotated.AutoWeight
		s.Annotated.Encoding.restore(&m.annot.encoding)
		for k, v := range s.Annotated.Constructions {
			m.annot.constructions[k] = v
		}
	}
	return m, nil
}
