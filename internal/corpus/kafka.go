package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/kafka"
)

// Record is the JSON payload of one compound on the corpus topic.
type Record struct {
	Count    int    `json:"count"`
	Compound string `json:"compound"`
}

// Fetcher is the subset of kafka.Consumer a KafkaStream needs.
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Publisher is the subset of kafka.Producer used by PublishCorpus.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// KafkaStream feeds compounds from a Kafka topic to online training. The
// stream ends with io.EOF once no message arrives for idle; a zero idle
// waits until the context is cancelled.
type KafkaStream struct {
	c       *IO
	fetcher Fetcher
	idle    time.Duration
	logger  *slog.Logger

	Skipped int
}

func (c *IO) KafkaStream(f Fetcher, idle time.Duration) *KafkaStream {
	return &KafkaStream{
		c:       c,
		fetcher: f,
		idle:    idle,
		logger:  slog.Default().With("component", "corpus-kafka"),
	}
}

func (s *KafkaStream) Next(ctx context.Context) (baseline.CorpusItem, error) {
	for {
		msg, err := s.fetch(ctx)
		if err != nil {
			return baseline.CorpusItem{}, err
		}
		rec, err := kafka.DecodeJSON[Record](msg.Value)
		if err == nil && strings.TrimSpace(rec.Compound) == "" {
			err = errors.New("empty compound")
		}
		if cerr := s.fetcher.Commit(ctx, msg); cerr != nil {
			return baseline.CorpusItem{}, fmt.Errorf("committing offset %d: %w", msg.Offset, cerr)
		}
		if err != nil {
			s.Skipped++
			s.logger.Warn("skipping malformed corpus record",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if rec.Count <= 0 {
			rec.Count = 1
		}
		return s.c.Item(rec.Count, strings.TrimSpace(rec.Compound)), nil
	}
}

func (s *KafkaStream) fetch(ctx context.Context) (kafka.Message, error) {
	if s.idle <= 0 {
		return s.fetcher.Fetch(ctx)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.idle)
	defer cancel()
	msg, err := s.fetcher.Fetch(fetchCtx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("corpus topic idle, ending stream", "idle", s.idle)
		return kafka.Message{}, io.EOF
	}
	return msg, err
}

// PublishCorpus drains stream onto the corpus topic in batches and returns
// the number of records published.
func PublishCorpus(ctx context.Context, p Publisher, stream baseline.Stream, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	batch := make([]kafka.Event, 0, batchSize)
	sent := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.PublishBatch(ctx, batch); err != nil {
			return err
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}
	for {
		item, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return sent, err
		}
		batch = append(batch, kafka.Event{
			Key:   item.Compound,
			Value: Record{Count: item.Count, Compound: item.Compound},
		})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return sent, err
			}
		}
	}
	return sent, flush()
}
