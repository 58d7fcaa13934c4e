// Command loadtest drives a running segserver with concurrent segmentation
// requests and reports throughput, latency percentiles and cache hit rate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/config"
)

var defaultWords = []string{
	"unhappiness", "rethinking", "kindly", "unkindness", "playing",
	"replayed", "workers", "overworked", "readable", "unreadable",
	"talkative", "walked", "jumping", "helpfulness", "openly",
}

func main() {
	cfg := Config{}
	var wordsFile string
	pflag.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the segmentation service")
	pflag.IntVar(&cfg.Concurrency, "concurrency", 10, "number of concurrent workers")
	pflag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	pflag.IntVar(&cfg.Batch, "batch", 0, "words per POST request (0 sends single-word GETs)")
	pflag.StringVar(&wordsFile, "words", "", "corpus file to draw words from (default: built-in sample)")
	pflag.Parse()

	cfg.Words = defaultWords
	if wordsFile != "" {
		words, err := loadWords(wordsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
			os.Exit(1)
		}
		cfg.Words = words
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("=== Segmentation Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Words:       %d unique\n", len(cfg.Words))
	fmt.Println()

	stats := Run(ctx, cfg, newClient(cfg.Concurrency))
	if err := stats.Report(os.Stdout, cfg.Duration); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

// loadWords reads the distinct compounds of a corpus file.
func loadWords(name string) ([]string, error) {
	cio, err := corpus.New(config.Default().Corpus)
	if err != nil {
		return nil, err
	}
	items, err := corpus.Collect(context.Background(), cio.ReadCorpusFiles([]string{name}, false))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	words := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Compound]; ok {
			continue
		}
		seen[item.Compound] = struct{}{}
		words = append(words, item.Compound)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%s: no words", name)
	}
	return words, nil
}
