package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	// DefaultFinishThreshold is the per-compound-token cost reduction below
	// which batch training stops.
	DefaultFinishThreshold = 0.005
	// DefaultEpochInterval is the number of compounds per online epoch.
	DefaultEpochInterval = 10000

	develThreshold = 0.01
	develAddCount  = 1.0
)

// EpochStats describes the model after one training epoch.
type EpochStats struct {
	Mode         string
	Epoch        int
	Cost         float64
	CorpusWeight float64
	LexiconSize  int
	Compounds    int
}

// EpochHook observes training progress.
type EpochHook func(EpochStats)

// epochUpdate runs between epochs (and once before training as epoch 0): it
// resets the skip counters and re-selects annotation choices.
func (m *Model) epochUpdate(epoch int) {
	if m.useSkips {
		m.visits = make(map[string]int)
	}
	if m.annot != nil {
		m.updateAnnotationChoices()
		if m.annot.updateWeight(m.annotations.Types()) {
			m.logger.Info("annotated corpus weight updated", "epoch", epoch, "weight", m.annot.weight)
		}
	}
}

func (m *Model) emit(mode string, epoch, compounds int, cost float64) {
	if m.onEpoch == nil {
		return
	}
	m.onEpoch(EpochStats{
		Mode:         mode,
		Epoch:        epoch,
		Cost:         cost,
		CorpusWeight: m.corpus.weight,
		LexiconSize:  m.lexicon.boundaries,
		Compounds:    compounds,
	})
}

func (m *Model) logSegments(c Construction, segments []Construction) {
	if !m.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	m.logger.Debug("compound optimized",
		"compound", c.String(),
		"segments", JoinAll(segments, "", " + "),
	)
}

// TrainBatch re-optimises every compound once per epoch, in shuffled order,
// until the cost reduction over an epoch falls below finishThreshold times
// the number of compound tokens. When devel is given, the corpus weight is
// tuned after each epoch so that boundary precision and recall on devel
// move towards each other. It returns the number of epochs and the final
// cost.
func (m *Model) TrainBatch(params Params, devel *Annotations, finishThreshold float64) (int, float64, error) {
	opt, err := m.optimizer(params)
	if err != nil {
		return 0, m.Cost(), err
	}
	m.epochUpdate(0)
	newCost := m.Cost()
	compounds := m.Compounds()
	m.logger.Info("starting batch training",
		"algorithm", params.Algorithm.String(),
		"compound_types", len(compounds),
		"compound_tokens", m.corpus.boundaries,
		"cost", newCost,
	)

	epochs := 0
	forcedEpochs := 1
	for {
		m.rng.Shuffle(len(compounds), func(i, j int) {
			compounds[i], compounds[j] = compounds[j], compounds[i]
		})
		for _, w := range compounds {
			m.logSegments(w, opt.optimize(w))
		}
		epochs++

		m.logger.Debug("cost before epoch update", "epoch", epochs, "cost", m.Cost())
		m.epochUpdate(epochs)
		oldCost := newCost
		newCost = m.Cost()

		if devel != nil && devel.Types() > 0 && m.tuneCorpusWeight(devel, epochs) {
			m.epochUpdate(epochs)
			newCost = m.Cost()
			forcedEpochs = max(forcedEpochs, 2)
		}

		m.logger.Info("epoch finished",
			"epoch", epochs,
			"cost", newCost,
			"lexicon_size", m.lexicon.boundaries,
		)
		m.emit("batch", epochs, len(compounds), newCost)

		if forcedEpochs == 0 && newCost >= oldCost-finishThreshold*float64(m.corpus.boundaries) {
			break
		}
		if forcedEpochs > 0 {
			forcedEpochs--
		}
	}
	m.logger.Info("batch training done", "epochs", epochs, "cost", newCost)
	return epochs, newCost, nil
}

// tuneCorpusWeight segments the development compounds, compares boundary
// precision and recall with their references and nudges the corpus weight.
// It reports whether the weight changed.
func (m *Model) tuneCorpusWeight(devel *Annotations, epoch int) bool {
	entries := devel.Entries()
	prediction := make([][][]Construction, len(entries))
	reference := make([][][]Construction, len(entries))
	for i, e := range entries {
		segments, _ := m.Segment(e.Compound, develAddCount, DefaultMaxLen)
		prediction[i] = [][]Construction{segments}
		reference[i] = e.Analyses
	}
	bpr := EvaluateBoundaries(prediction, reference)
	m.logger.Info("boundary evaluation", "precision", bpr.Precision, "recall", bpr.Recall)

	step := 1 + 2.0/float64(epoch)
	switch segmentationDirection(bpr, develThreshold) {
	case 1:
		m.corpus.weight *= step
	case -1:
		m.corpus.weight /= step
	default:
		return false
	}
	m.logger.Info("corpus weight set", "weight", m.corpus.weight)
	return true
}

// TrainOnline adds compounds from stream one at a time and re-optimises each
// immediately. Every epochInterval compounds the epoch update runs. With a
// dampening function, the first sight of a compound adds one occurrence and
// later sights add dampen(c+1)-dampen(c). It returns the number of epochs
// and the final cost.
func (m *Model) TrainOnline(ctx context.Context, stream Stream, dampen CountFunc, epochInterval int, params Params) (int, float64, error) {
	opt, err := m.optimizer(params)
	if err != nil {
		return 0, m.Cost(), err
	}
	if epochInterval <= 0 {
		epochInterval = DefaultEpochInterval
	}
	var seen map[string]int
	if dampen != nil {
		seen = make(map[string]int)
	}
	m.logger.Info("starting online training",
		"algorithm", params.Algorithm.String(),
		"epoch_interval", epochInterval,
	)

	epochs, processed := 0, 0
	more := true
	for more {
		m.epochUpdate(epochs)
		m.logger.Info("online progress", "tokens_processed", processed, "cost", m.Cost())

		for k := 0; k < epochInterval; k++ {
			item, err := stream.Next(ctx)
			if errors.Is(err, io.EOF) {
				more = false
				break
			}
			if err != nil {
				return epochs, m.Cost(), fmt.Errorf("reading training stream: %w", err)
			}
			w := item.Atoms
			if len(w) == 0 {
				continue
			}
			if seen != nil {
				key := w.Key()
				c, ok := seen[key]
				seen[key] = c + 1
				add := 1
				if ok {
					add = dampen(c+1) - dampen(c)
				}
				if add > 0 {
					m.addCompound(w, add)
				}
			} else {
				m.addCompound(w, 1)
			}
			m.logSegments(w, opt.optimize(w))
			processed++
		}
		epochs++
		m.emit("online", epochs, processed, m.Cost())
	}

	m.epochUpdate(epochs)
	cost := m.Cost()
	m.logger.Info("online training done", "tokens_processed", processed, "epochs", epochs, "cost", cost)
	return epochs, cost, nil
}
