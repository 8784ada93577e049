package cli

import (
	"fmt"

	"atsfit/internal/document"
	"atsfit/internal/errors"
	"atsfit/internal/pipeline"
	"atsfit/internal/similarity"

	"github.com/spf13/cobra"
)

var fitCmd = &cobra.Command{
	Use:   "fit CORPUS_DIR",
	Short: "Fit the TF-IDF model on a directory of documents",
	Long: `Fit the lexical similarity model on every supported document under
CORPUS_DIR (PDF, DOCX, HTML, Markdown and plain text) and save it as JSON.
Documents that cannot be extracted are skipped.

The saved model is loaded by analyze, serve and worker from models.tfidfPath.`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

var (
	fitOutput      string
	fitMinDF       int
	fitMaxFeatures int
)

func init() {
	fitCmd.Flags().StringVarP(&fitOutput, "output", "o", "", "Model output path (default: models.tfidfPath)")
	fitCmd.Flags().IntVar(&fitMinDF, "min-df", 0, "Ignore terms found in fewer documents (default: models.minDF)")
	fitCmd.Flags().IntVar(&fitMaxFeatures, "max-features", 0, "Keep only the most frequent terms, 0 keeps all (default: models.maxFeatures)")
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	output := fitOutput
	if output == "" {
		output = cfg.Models.TFIDFPath
	}
	if output == "" {
		return errors.NewValidationError(errors.ErrCodeMissingInput, "an output path is required (--output or models.tfidfPath)", nil)
	}

	opts := similarity.FitOptions{MinDF: cfg.Models.MinDF, MaxFeatures: cfg.Models.MaxFeatures}
	if cmd.Flags().Changed("min-df") {
		opts.MinDF = fitMinDF
	}
	if cmd.Flags().Changed("max-features") {
		opts.MaxFeatures = fitMaxFeatures
	}

	extractor, err := document.NewExtractor(cmd.Context(), cfg.Document.PDFBackend)
	if err != nil {
		return err
	}

	model, err := pipeline.FitCorpus(cmd.Context(), args[0], extractor, opts, logger)
	if err != nil {
		return fmt.Errorf("failed to fit tf-idf model: %w", err)
	}
	if err := model.Save(output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fitted TF-IDF model on %d documents with %d terms: %s\n",
		model.Documents(), model.Size(), output)
	return nil
}
