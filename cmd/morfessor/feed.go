package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/kafka"
)

func newFeedCmd(root *options) *cobra.Command {
	var (
		list  bool
		topic string
	)
	cmd := &cobra.Command{
		Use:   "feed FILE...",
		Short: "Publish corpus files to Kafka for online training",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			cfg, closeLog, err := setup(cmd, root)
			if err != nil {
				return err
			}
			defer closeLog()
			if topic != "" {
				cfg.Kafka.Topic = topic
			}

			cio, err := corpus.New(cfg.Corpus)
			if err != nil {
				return err
			}
			cio.Stdin = cmd.InOrStdin()

			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topic)
			defer producer.Close()

			n, err := corpus.PublishCorpus(cmd.Context(), producer, cio.ReadCorpusFiles(files, list), cfg.Kafka.BatchSize)
			if err != nil {
				return err
			}
			slog.Info("corpus published", "records", n, "topic", cfg.Kafka.Topic)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "files are 'count compound' word lists")
	cmd.Flags().StringVar(&topic, "topic", "", "Kafka topic (default from config)")
	return cmd
}
