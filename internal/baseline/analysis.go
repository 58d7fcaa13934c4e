package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// ParseType selects how a multi-part analysis is stored.
type ParseType int

const (
	// ParseFlat stores every part as a direct child of the compound.
	ParseFlat ParseType = iota
	// ParseRightBranching stores the parts as a right-leaning binary chain.
	ParseRightBranching
)

func (p ParseType) String() string {
	switch p {
	case ParseFlat:
		return "flat"
	case ParseRightBranching:
		return "rbranch"
	default:
		return fmt.Sprintf("ParseType(%d)", int(p))
	}
}

// SetAnalysis commits parts as the analysis of c.
func (m *Model) SetAnalysis(c Construction, parts []Construction, ptype ParseType) error {
	return m.setAnalysis(c, parts, ptype)
}

func (m *Model) setAnalysis(c Construction, parts []Construction, ptype ParseType) error {
	if len(parts) == 1 {
		rootCount, count := m.remove(c)
		m.setReal(c, rootCount, count)
		return nil
	}
	switch ptype {
	case ParseFlat:
		m.setFlat(c, parts)
	case ParseRightBranching:
		m.setRightBranching(c, parts)
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownParseType, ptype.String())
	}
	return nil
}

func (m *Model) setFlat(c Construction, parts []Construction) {
	if len(parts) == 1 {
		rootCount, count := m.remove(c)
		m.setReal(c, rootCount, count)
		return
	}
	rootCount, count := m.remove(c)
	m.putNode(c, rootCount, count, splitLocsOf(parts))
	for _, part := range parts {
		m.modifyCount(part, count)
	}
}

func (m *Model) setRightBranching(c Construction, parts []Construction) {
	cur := c
	for p, prefix := range parts {
		rootCount, count := m.remove(cur)
		if p == len(parts)-1 {
			m.setReal(cur, rootCount, count)
			return
		}
		suffix := Concat(parts[p+1:])
		m.putNode(cur, rootCount, count, []int{len(prefix)})
		m.modifyCount(prefix, count)
		m.modifyCount(suffix, count)
		cur = suffix
	}
}

// CountFunc transforms a corpus count before it enters the model.
type CountFunc func(int) int

// LoadData adds the compounds of a corpus to the model and returns the
// resulting cost. Compounds below freqThreshold are skipped. dampen may be
// nil. A positive initSplitProb splits every compound at random offsets,
// each with that probability.
func (m *Model) LoadData(ctx context.Context, corpus Stream, freqThreshold int, dampen CountFunc, initSplitProb float64) (float64, error) {
	loaded := 0
	for {
		item, err := corpus.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return m.Cost(), fmt.Errorf("loading corpus: %w", err)
		}
		if item.Count < freqThreshold || len(item.Atoms) == 0 {
			continue
		}
		count := item.Count
		if dampen != nil {
			count = dampen(count)
		}
		if count <= 0 {
			continue
		}
		m.addCompound(item.Atoms, count)
		if initSplitProb > 0 {
			m.setFlat(item.Atoms, m.randomSplit(item.Atoms, initSplitProb))
		}
		loaded++
	}
	m.logger.Info("corpus loaded",
		"compounds", loaded,
		"compound_tokens", m.corpus.boundaries,
		"cost", m.Cost(),
	)
	return m.Cost(), nil
}

// LoadSegmentations seeds the model from existing segmentations. Each
// compound is the concatenation of its segments; the analysis is stored as a
// right-branching chain so binary split costs stay meaningful.
func (m *Model) LoadSegmentations(entries []SegmentationEntry) error {
	for _, e := range entries {
		if len(e.Segments) == 0 || e.Count <= 0 {
			continue
		}
		compound := Concat(e.Segments)
		m.addCompound(compound, e.Count)
		if err := m.setAnalysis(compound, e.Segments, ParseRightBranching); err != nil {
			return err
		}
	}
	m.logger.Info("segmentations loaded", "entries", len(entries), "cost", m.Cost())
	return nil
}
