package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/store"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/tracing"
)

// testChunk is the number of test compounds segmented between writes.
const testChunk = 1024

// setup loads the configuration, applies flags and installs the logger. The
// returned function closes the log file, if any.
func setup(cmd *cobra.Command, o *options) (*config.Config, func(), error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	applyFlags(cmd.Flags(), o, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if cmd.Flags().Changed("verbose") {
		level = logger.VerbosityLevel(o.verbose)
	}
	logPath := cfg.Logging.File
	if o.logFile != "" {
		logPath = o.logFile
	}
	if logPath == "" {
		logger.SetupWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)
		return cfg, func() {}, nil
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetupWriter(f, level, cfg.Logging.Format)
	return cfg, func() { f.Close() }, nil
}

func run(ctx context.Context, cmd *cobra.Command, o *options) error {
	cfg, closeLog, err := setup(cmd, o)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, span := tracing.Start(ctx, "morfessor")
	defer func() {
		span.End()
		span.Log(slog.Default())
	}()

	if o.load == "" && o.loadSeg == "" && o.loadModel == "" && len(o.trainFiles) == 0 && o.kafkaTopic == "" {
		return errors.New("no model or training data given: use -l, -L, --load-model, -t or --kafka-topic")
	}

	cio, err := corpus.New(cfg.Corpus)
	if err != nil {
		return err
	}
	cio.Stdin = cmd.InOrStdin()
	cio.Stdout = cmd.OutOrStdout()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	var st store.Store
	if o.loadModel != "" || o.saveModel != "" {
		if st, err = store.Open(ctx, cfg, m); err != nil {
			return err
		}
		defer st.Close()
	}

	_, loadSpan := tracing.Start(ctx, "load")
	model, err := loadModel(ctx, cmd, o, cfg, cio, st, m)
	loadSpan.End()
	if err != nil {
		return err
	}

	var devel *baseline.Annotations
	if o.annotations != "" {
		entries, err := cio.ReadAnnotationsFile(o.annotations)
		if err != nil {
			return err
		}
		var weight *float64
		if cfg.Model.AnnotationWeight > 0 {
			weight = &cfg.Model.AnnotationWeight
		}
		model.SetAnnotations(baseline.NewAnnotations(entries), weight)
	}
	if o.devel != "" {
		entries, err := cio.ReadAnnotationsFile(o.devel)
		if err != nil {
			return err
		}
		devel = baseline.NewAnnotations(entries)
	}

	_, trainSpan := tracing.Start(ctx, "train")
	trainSpan.SetAttr("mode", cfg.Training.Mode)
	err = train(ctx, o, cfg, cio, model, devel)
	trainSpan.SetAttr("lexicon_size", model.LexiconSize())
	trainSpan.End()
	if err != nil {
		return err
	}

	_, saveSpan := tracing.Start(ctx, "save")

	if o.save != "" {
		if err := store.SaveFile(o.save, model.State()); err != nil {
			return err
		}
		slog.Info("model saved", "file", o.save)
	}
	if o.saveModel != "" {
		if err := st.Save(ctx, o.saveModel, model.State()); err != nil {
			return err
		}
		slog.Info("model saved", "store", cfg.Store.Backend, "name", o.saveModel)
	}
	if o.saveSeg != "" {
		if err := cio.WriteSegmentationFile(o.saveSeg, model.Segmentations()); err != nil {
			return err
		}
	}
	if o.lexicon != "" {
		if err := cio.WriteLexiconFile(o.lexicon, model.Constructions()); err != nil {
			return err
		}
	}
	saveSpan.End()

	if len(o.testFiles) > 0 {
		testCtx, testSpan := tracing.Start(ctx, "segment_test")
		defer testSpan.End()
		return segmentTestData(testCtx, o, cfg, cio, model)
	}
	return nil
}

func loadModel(ctx context.Context, cmd *cobra.Command, o *options, cfg *config.Config, cio *corpus.IO, st store.Store, m *metrics.Metrics) (*baseline.Model, error) {
	seed := cfg.Model.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mcfg := baseline.Config{
		CorpusWeight: cfg.Model.CorpusWeight,
		ForceSplit:   cfg.Model.ForceSplit,
		UseSkips:     cfg.Model.UseSkips,
		Rand:         rand.New(rand.NewSource(seed)),
		Logger:       logger.WithComponent("baseline"),
		OnEpoch: func(s baseline.EpochStats) {
			if m != nil {
				m.ObserveEpoch(s.Mode, s.Cost, s.CorpusWeight, s.LexiconSize, s.Compounds)
			}
		},
	}

	var state *baseline.State
	switch {
	case o.load != "":
		s, err := store.LoadFile(o.load)
		if err != nil {
			return nil, err
		}
		state = s
	case o.loadModel != "":
		s, err := st.Load(ctx, o.loadModel)
		if err != nil {
			return nil, err
		}
		state = s
	}
	if state != nil {
		model, err := baseline.FromState(state, mcfg)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("corpusweight") {
			model.SetCorpusWeight(cfg.Model.CorpusWeight)
		}
		slog.Info("model loaded", "cost", model.Cost(), "lexicon_size", model.LexiconSize())
		return model, nil
	}

	model := baseline.New(mcfg)
	if o.loadSeg != "" {
		entries, err := cio.ReadSegmentationFile(o.loadSeg)
		if err != nil {
			return nil, err
		}
		if err := model.LoadSegmentations(entries); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func train(ctx context.Context, o *options, cfg *config.Config, cio *corpus.IO, model *baseline.Model, devel *baseline.Annotations) error {
	dampen, err := baseline.ParseDampening(cfg.Training.Dampening)
	if err != nil {
		return err
	}
	algo, err := baseline.ParseAlgorithm(cfg.Training.Algorithm)
	if err != nil {
		return err
	}
	params := baseline.Params{Algorithm: algo, AddCount: cfg.Viterbi.Smoothing, MaxLen: cfg.Viterbi.MaxLen}

	switch mode := cfg.Training.Mode; mode {
	case "none":
		return nil
	case "init", "batch", "init+batch":
		if mode == "batch" && len(o.trainFiles) > 0 {
			slog.Warn("batch mode trains the loaded model only; use init+batch to add the training data",
				"ignored_files", o.trainFiles)
		} else if len(o.trainFiles) > 0 {
			stream := cio.ReadCorpusFiles(o.trainFiles, o.trainList)
			if _, err := model.LoadData(ctx, stream, cfg.Training.FreqThreshold, dampen, cfg.Training.InitSplitProb); err != nil {
				return err
			}
		}
		if mode == "init" {
			return nil
		}
		return trainBatch(model, params, devel, cfg.Training.FinishThreshold)
	case "online", "online+batch":
		stream, closeStream, err := onlineStream(o, cfg, cio)
		if err != nil {
			return err
		}
		defer closeStream()
		epochs, cost, err := model.TrainOnline(ctx, stream, dampen, cfg.Training.EpochInterval, params)
		if err != nil {
			return err
		}
		slog.Info("online training finished", "epochs", epochs, "cost", cost)
		if mode == "online+batch" {
			return trainBatch(model, params, devel, cfg.Training.FinishThreshold)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, mode)
	}
}

func trainBatch(model *baseline.Model, params baseline.Params, devel *baseline.Annotations, threshold float64) error {
	if len(model.Compounds()) == 0 {
		slog.Warn("model contains no compounds for batch training, use an init mode with training data")
		return nil
	}
	epochs, cost, err := model.TrainBatch(params, devel, threshold)
	if err != nil {
		return err
	}
	slog.Info("batch training finished", "epochs", epochs, "cost", cost)
	return nil
}

// onlineStream feeds online training from the training files followed by
// the Kafka topic, whichever are configured.
func onlineStream(o *options, cfg *config.Config, cio *corpus.IO) (baseline.Stream, func(), error) {
	var streams []baseline.Stream
	if len(o.trainFiles) > 0 {
		streams = append(streams, cio.ReadCorpusFiles(o.trainFiles, o.trainList))
	}
	closeFn := func() {}
	if o.kafkaTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topic)
		streams = append(streams, cio.KafkaStream(consumer, cfg.Kafka.IdleTimeout))
		closeFn = func() {
			if err := consumer.Close(); err != nil {
				slog.Warn("closing kafka consumer", "error", err)
			}
		}
		slog.Info("online training from kafka", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.ConsumerGroup)
	}
	if len(streams) == 0 {
		return nil, nil, errors.New("online training needs -t or --kafka-topic")
	}
	return corpus.Concat(streams...), closeFn, nil
}

// segmentTestData writes the Viterbi segmentation of every test compound,
// one line each, in input order.
func segmentTestData(ctx context.Context, o *options, cfg *config.Config, cio *corpus.IO, model *baseline.Model) error {
	out, err := cio.Create(o.output)
	if err != nil {
		return err
	}
	stream := cio.ReadCorpusFiles(o.testFiles, false)
	workers := max(1, o.workers)
	total := 0

	flush := func(batch []baseline.CorpusItem) error {
		segs := make([][]baseline.Construction, len(batch))
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range batch {
			i := i
			g.Go(func() error {
				segs[i], _ = model.Segment(batch[i].Atoms, cfg.Viterbi.Smoothing, cfg.Viterbi.MaxLen)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, s := range segs {
			if err := cio.WriteSegmentedLine(out, s); err != nil {
				return err
			}
		}
		total += len(batch)
		return nil
	}

	batch := make([]baseline.CorpusItem, 0, testChunk)
	for {
		item, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return err
		}
		batch = append(batch, item)
		if len(batch) == testChunk {
			if err := flush(batch); err != nil {
				out.Close()
				return err
			}
			batch = batch[:0]
		}
	}
	if err := flush(batch); err != nil {
		out.Close()
		return err
	}
	if span := tracing.FromContext(ctx); span != nil {
		span.SetAttr("compounds", total)
	}
	slog.Info("test data segmented", "compounds", total, "output", o.output)
	return out.Close()
}
