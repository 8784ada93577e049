package cli

import (
	"fmt"

	"atsfit/internal/common"
	"atsfit/internal/document"
	"atsfit/internal/queue"
	"atsfit/internal/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit RESUME [JOB_DESCRIPTION]",
	Short: "Queue a resume for analysis by a worker",
	Long: `Extract the resume and optional job description and publish them as an
analysis job on the jobs queue. Use --object to reference a resume already
uploaded to the storage bucket instead of a local file.

The job ID is printed so results can be correlated.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runSubmit,
}

var submitObject string

func init() {
	submitCmd.Flags().StringVar(&submitObject, "object", "", "Storage object key of an uploaded resume")
}

// newJob builds a job from the extracted documents. With an object key the
// single positional document is the job description.
func newJob(id, object string, contents []string) types.AnalysisJob {
	job := types.AnalysisJob{ID: id, ResumeObject: object}
	switch {
	case object != "" && len(contents) > 0:
		job.JobDescription = contents[0]
	case object == "":
		if len(contents) > 0 {
			job.Resume = contents[0]
		}
		if len(contents) > 1 {
			job.JobDescription = contents[1]
		}
	}
	return job
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	if submitObject == "" && len(args) == 0 {
		return fmt.Errorf("a resume file or --object is required")
	}
	if submitObject != "" && len(args) > 1 {
		return fmt.Errorf("only a job description may be given with --object")
	}

	extractor, err := document.NewExtractor(cmd.Context(), cfg.Document.PDFBackend)
	if err != nil {
		return err
	}
	fp := common.NewFileProcessor(logger, extractor, cfg.App.MaxFileSize)
	contents, err := fp.ReadDocuments(cmd.Context(), args...)
	if err != nil {
		return err
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

	job := newJob(uuid.NewString(), submitObject, contents)
	if err := mq.PublishJob(cmd.Context(), job); err != nil {
		return err
	}

	logger.Info("Analysis job submitted", "job_id", job.ID, "queue", cfg.Queue.JobsQueue)
	fmt.Fprintln(cmd.OutOrStdout(), job.ID)
	return nil
}
