package cli

import (
	"fmt"

	"atsfit/internal/queue"
	"atsfit/internal/storage"
	"atsfit/internal/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis jobs from RabbitMQ",
	Long: `Consume analysis jobs from the configured jobs queue and publish score
bundles to the results exchange.

Jobs carry the resume inline or as an object key in the storage bucket.
Malformed jobs are answered with an error result, transient failures are
requeued.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	rt, err := newRuntime(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	analyzer, err := rt.analyzer(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	mq, err := queue.NewRabbitMQ(cfg.Queue, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mq.Close(); err != nil {
			logger.LogError(err, "Failed to close RabbitMQ connection")
		}
	}()
	if err := mq.EnsureTopology(); err != nil {
		return err
	}

	var store worker.ObjectStore
	if cfg.Storage.Enabled {
		archive, err := storage.NewReportArchive(cmd.Context(), cfg.Storage, logger)
		if err != nil {
			return err
		}
		store = archive
	}

	w := worker.New(analyzer, rt.extractor, store, mq, logger)
	logger.Info("Worker started", "queue", cfg.Queue.JobsQueue, "prefetch", cfg.Queue.Prefetch)
	if err := mq.Consume(cmd.Context(), w.Handle); err != nil {
		return err
	}
	logger.Info("Worker stopped")
	return nil
}
