package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
)

type options struct {
	configPath string

	load        string
	loadSeg     string
	loadModel   string
	trainFiles  []string
	trainList   bool
	testFiles   []string
	output      string
	save        string
	saveSeg     string
	saveModel   string
	lexicon     string
	annotations string
	devel       string
	kafkaTopic  string
	storeKind   string
	workers     int
	verbose     int
	logFile     string

	// Overrides of config file values; applied only when given.
	atomSep         string
	compoundSep     string
	lowercase       bool
	mode            string
	algorithm       string
	dampening       string
	forceSplit      []string
	seed            int64
	splitProb       float64
	skips           bool
	minFreq         int
	epochInterval   int
	smoothing       float64
	maxLen          int
	corpusWeight    float64
	annotWeight     float64
	finishThreshold float64
	metricsPort     int
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "morfessor",
		Short: "Unsupervised and semi-supervised morph segmentation",
		Long: `morfessor trains a Morfessor Baseline model on a corpus, optionally
saves it, and segments test data with it. Models can be loaded from
snapshot files, segmentation files or a configured model store.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, o)
		},
	}

	f := cmd.Flags()
	cmd.PersistentFlags().StringVar(&o.configPath, "config", "", "YAML configuration file")

	f.StringVarP(&o.load, "load", "l", "", "load a model snapshot file")
	f.StringVarP(&o.loadSeg, "load-segmentation", "L", "", "load an existing segmentation file")
	f.StringVar(&o.loadModel, "load-model", "", "load the named model from the configured store")
	f.StringArrayVarP(&o.trainFiles, "traindata", "t", nil, "training corpus file (repeatable, '-' for stdin)")
	f.BoolVar(&o.trainList, "traindata-list", false, "training files are 'count compound' word lists")
	f.StringArrayVarP(&o.testFiles, "testdata", "T", nil, "corpus to segment after training (repeatable)")
	f.StringVarP(&o.output, "output", "o", "-", "output file for test data segmentations")
	f.StringVarP(&o.save, "save", "s", "", "save the model snapshot to a file")
	f.StringVarP(&o.saveSeg, "save-segmentation", "S", "", "save the training segmentations to a file")
	f.StringVar(&o.saveModel, "save-model", "", "save the model under this name in the configured store")
	f.StringVarP(&o.lexicon, "lexicon", "x", "", "write the lexicon to a file")
	f.StringVarP(&o.annotations, "annotations", "A", "", "annotated corpus for semi-supervised training")
	f.StringVarP(&o.devel, "develset", "D", "", "annotated development set for tuning the corpus weight")
	f.StringVar(&o.storeKind, "store", "", "model store backend for --load-model and --save-model: file, badger or postgres")
	f.StringVar(&o.kafkaTopic, "kafka-topic", "", "read online training data from this Kafka topic")
	f.IntVar(&o.workers, "workers", 4, "parallel workers for test data segmentation")
	f.IntVarP(&o.verbose, "verbose", "v", 1, "verbosity: 0 warnings only, 1 progress, 2 debug")
	f.StringVar(&o.logFile, "logfile", "", "append log output to this file instead of stderr")

	f.StringVar(&o.atomSep, "atom-separator", "", "regexp separating atoms (default: characters are atoms)")
	f.StringVar(&o.compoundSep, "compound-separator", config.DefaultCompoundSeparator, "regexp separating compounds in corpus lines")
	f.BoolVar(&o.lowercase, "lowercase", false, "lower-case all input")
	f.StringVarP(&o.mode, "mode", "m", "init+batch", "training mode: none, init, batch, init+batch, online, online+batch")
	f.StringVarP(&o.algorithm, "algorithm", "a", "recursive", "optimisation algorithm: recursive or viterbi")
	f.StringVarP(&o.dampening, "dampening", "d", "none", "frequency dampening: none, log or ones")
	f.StringSliceVarP(&o.forceSplit, "forcesplit", "f", []string{"-"}, "atoms that always form their own construction")
	f.Int64VarP(&o.seed, "randseed", "r", 0, "random seed (0 seeds from the clock)")
	f.Float64VarP(&o.splitProb, "randsplit", "R", 0, "probability of random initial splits at each position")
	f.BoolVar(&o.skips, "skips", false, "randomly skip frequently optimised constructions")
	f.IntVar(&o.minFreq, "batch-minfreq", 1, "ignore training compounds rarer than this")
	f.IntVar(&o.epochInterval, "online-epochint", 10000, "compounds per epoch in online training")
	f.Float64Var(&o.smoothing, "viterbi-smoothing", 0, "additive smoothing for Viterbi segmentation")
	f.IntVar(&o.maxLen, "viterbi-maxlen", 30, "longest construction considered by Viterbi segmentation")
	f.Float64VarP(&o.corpusWeight, "corpusweight", "w", 1.0, "corpus cost weight")
	f.Float64VarP(&o.annotWeight, "annotationweight", "W", 0, "annotated corpus weight (default: balanced automatically)")
	f.Float64Var(&o.finishThreshold, "finish-threshold", 0.005, "stop batch training when the per-compound cost gain falls below this")
	f.IntVar(&o.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port during training")

	cmd.AddCommand(newFeedCmd(o))
	return cmd
}

// applyFlags copies explicitly given flags over the loaded configuration.
func applyFlags(fs *pflag.FlagSet, o *options, cfg *config.Config) {
	set := fs.Changed
	if set("atom-separator") {
		cfg.Corpus.AtomSeparator = o.atomSep
	}
	if set("compound-separator") {
		cfg.Corpus.CompoundSeparator = o.compoundSep
	}
	if set("lowercase") {
		cfg.Corpus.Lowercase = o.lowercase
	}
	if set("mode") {
		cfg.Training.Mode = o.mode
	}
	if set("algorithm") {
		cfg.Training.Algorithm = o.algorithm
	}
	if set("dampening") {
		cfg.Training.Dampening = o.dampening
	}
	if set("forcesplit") {
		cfg.Model.ForceSplit = nonEmpty(o.forceSplit)
	}
	if set("randseed") {
		cfg.Model.Seed = o.seed
	}
	if set("randsplit") {
		cfg.Training.InitSplitProb = o.splitProb
	}
	if set("skips") {
		cfg.Model.UseSkips = o.skips
	}
	if set("batch-minfreq") {
		cfg.Training.FreqThreshold = o.minFreq
	}
	if set("online-epochint") {
		cfg.Training.EpochInterval = o.epochInterval
	}
	if set("viterbi-smoothing") {
		cfg.Viterbi.Smoothing = o.smoothing
	}
	if set("viterbi-maxlen") {
		cfg.Viterbi.MaxLen = o.maxLen
	}
	if set("corpusweight") {
		cfg.Model.CorpusWeight = o.corpusWeight
	}
	if set("annotationweight") {
		cfg.Model.AnnotationWeight = o.annotWeight
	}
	if set("finish-threshold") {
		cfg.Training.FinishThreshold = o.finishThreshold
	}
	if set("metrics-port") {
		cfg.Metrics.Enabled = o.metricsPort > 0
		cfg.Metrics.Port = o.metricsPort
	}
	if set("store") {
		cfg.Store.Backend = o.storeKind
	}
	if set("kafka-topic") {
		cfg.Kafka.Topic = o.kafkaTopic
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
