// Package segmenter serves segmentations from a trained model over HTTP,
// with an optional Redis result cache.
package segmenter

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
)

// MaxWordLength bounds the runes accepted for a single word.
const MaxWordLength = 256

// Result is the segmentation of one word.
type Result struct {
	Word     string   `json:"word"`
	Segments []string `json:"segments"`
	Cost     float64  `json:"cost"`
	Cached   bool     `json:"cached"`
}

// Options configures a Service. Cache and Metrics may be nil.
type Options struct {
	Name     string
	AddCount float64
	MaxLen   int
	Cache    *Cache
	Metrics  *metrics.Metrics
}

// Service segments words with a trained model. The model must not be
// modified while the service is in use.
type Service struct {
	model       *baseline.Model
	io          *corpus.IO
	opts        Options
	fingerprint string
	logger      *slog.Logger
}

func NewService(model *baseline.Model, cio *corpus.IO, opts Options) (*Service, error) {
	if opts.MaxLen <= 0 {
		opts.MaxLen = baseline.DefaultMaxLen
	}
	fp, err := Fingerprint(model.State())
	if err != nil {
		return nil, err
	}
	return &Service{
		model:       model,
		io:          cio,
		opts:        opts,
		fingerprint: fp,
		logger:      slog.Default().With("component", "segmenter", "model", opts.Name),
	}, nil
}

// Fingerprint identifies a model snapshot so cache entries from a
// different model are never served.
func Fingerprint(s *baseline.State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("fingerprinting model: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8]), nil
}

func (s *Service) Fingerprint() string { return s.fingerprint }

func validateWord(word string) error {
	if word == "" {
		return fmt.Errorf("%w: empty word", apperrors.ErrInvalidInput)
	}
	if !utf8.ValidString(word) {
		return fmt.Errorf("%w: word is not valid UTF-8", apperrors.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(word); n > MaxWordLength {
		return fmt.Errorf("%w: word has %d characters, limit is %d", apperrors.ErrInvalidInput, n, MaxWordLength)
	}
	return nil
}

func (s *Service) compute(word string) Result {
	segments, cost := s.model.Segment(s.io.SplitAtoms(word), s.opts.AddCount, s.opts.MaxLen)
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = s.io.FormatConstruction(seg)
	}
	return Result{Word: word, Segments: out, Cost: cost}
}

// Segment returns the Viterbi segmentation of word.
func (s *Service) Segment(ctx context.Context, word string) (Result, error) {
	start := time.Now()
	if err := validateWord(word); err != nil {
		s.observe("error", "", start)
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		s.observe("error", "", start)
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		return Result{}, err
	}
	if s.opts.Cache == nil {
		r := s.compute(word)
		s.observe("ok", "disabled", start)
		return r, nil
	}

	key := Key(s.fingerprint, s.opts.AddCount, s.opts.MaxLen, word)
	r, hit, err := s.opts.Cache.GetOrCompute(ctx, key, func() (Result, error) {
		return s.compute(word), nil
	})
	if err != nil {
		s.observe("error", "miss", start)
		return Result{}, err
	}
	if hit {
		r.Cached = true
		s.observe("cached", "hit", start)
		return r, nil
	}
	s.observe("ok", "miss", start)
	return r, nil
}

func (s *Service) observe(result, cacheStatus string, start time.Time) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.SegmentRequestsTotal.WithLabelValues(result).Inc()
	if cacheStatus != "" {
		s.opts.Metrics.SegmentLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	}
}

// SegmentAll segments words with at most workers concurrent calls. Results
// are in input order. The first error cancels the remaining work.
func (s *Service) SegmentAll(ctx context.Context, words []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(words))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, w := range words {
		i, w := i, w
		g.Go(func() error {
			r, err := s.Segment(gctx, w)
			if err != nil {
				return fmt.Errorf("word %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ModelInfo summarises the served model.
type ModelInfo struct {
	Name         string  `json:"name"`
	Fingerprint  string  `json:"fingerprint"`
	Cost         float64 `json:"cost"`
	CorpusWeight float64 `json:"corpus_weight"`
	LexiconSize  int     `json:"lexicon_size"`
	Compounds    int     `json:"compounds"`
	CorpusTokens int     `json:"corpus_tokens"`
	Supervised   bool    `json:"supervised"`
	AddCount     float64 `json:"viterbi_smoothing"`
	MaxLen       int     `json:"viterbi_maxlen"`
}

func (s *Service) Info() ModelInfo {
	return ModelInfo{
		Name:         s.opts.Name,
		Fingerprint:  s.fingerprint,
		Cost:         s.model.Cost(),
		CorpusWeight: s.model.CorpusWeight(),
		LexiconSize:  s.model.LexiconSize(),
		Compounds:    len(s.model.Compounds()),
		CorpusTokens: s.model.CorpusTokens(),
		Supervised:   s.model.Supervised(),
		AddCount:     s.opts.AddCount,
		MaxLen:       s.opts.MaxLen,
	}
}

// LexiconItem is one construction in the lexicon listing.
type LexiconItem struct {
	Construction string `json:"construction"`
	Count        int    `json:"count"`
}

// Lexicon returns the limit most frequent constructions, ties in key
// order, and the total lexicon size.
func (s *Service) Lexicon(limit int) ([]LexiconItem, int) {
	entries := s.model.Constructions()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := make([]LexiconItem, len(entries))
	for i, e := range entries {
		out[i] = LexiconItem{Construction: s.io.FormatConstruction(e.Construction), Count: e.Count}
	}
	return out, s.model.LexiconSize()
}
