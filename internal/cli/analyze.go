package cli

import (
	"context"
	"fmt"
	"time"

	"atsfit/internal/common"
	"atsfit/internal/errors"
	"atsfit/internal/report"
	"atsfit/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze RESUME [JOB_DESCRIPTION]",
	Short: "Score a resume, optionally against a job description",
	Long: `Score a resume the way an applicant tracking system would.

With only a resume the report covers contact details, experience, education,
detected skills and the predicted job category. With a job description it also
includes skill coverage, missing skills, semantic and lexical similarity and the
composite ATS score (0-100).

Resumes and job descriptions may be PDF, DOCX, HTML, Markdown or plain text.`,
	Args: cobra.MaximumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig       common.CommandConfig
	analyzeWordBoundary bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout, required for pdf)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, markdown or pdf")
	analyzeCmd.Flags().BoolVar(&analyzeWordBoundary, "word-boundary", false, "Only match skills on word boundaries (overrides config)")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: please provide a resume file to analyze.")
		return errors.NewValidationError(errors.ErrCodeMissingInput, "resume file is required", nil)
	}

	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("word-boundary") {
		cfg.Skills.WordBoundary = analyzeWordBoundary
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

	createInput := func(contents []string) (types.AnalyzeInput, error) {
		input := types.AnalyzeInput{Resume: contents[0]}
		if len(contents) > 1 {
			input.JobDescription = contents[1]
		}
		return input, nil
	}

	logDetails := func(input types.AnalyzeInput, cfg common.CommandConfig) {
		logger.Info("Starting resume analysis",
			"resume_chars", len(input.Resume),
			"job_description_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, input types.AnalyzeInput) (types.Report, error) {
		bundle, err := analyzer.Analyze(ctx, input.Resume, input.JobDescription)
		if err != nil {
			return types.Report{}, err
		}
		return report.Build(bundle, input.Resume, time.Now()), nil
	}

	fileProcessor := common.NewFileProcessor(logger, rt.extractor, cfg.App.MaxFileSize)
	if err := common.RunDocumentCommand(
		cmd.Context(),
		fileProcessor,
		analyzeConfig,
		args,
		createInput,
		analyzeOperation,
		logDetails,
	); err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	logger.Info("Resume analysis completed successfully")
	return nil
}
