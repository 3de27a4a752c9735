package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"boleta/internal/issuance"
	"boleta/internal/logger"
	"boleta/pkg/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract [receipt-file-or-folder]",
	Short: "Read a receipt photo or PDF into a draft document",
	Long: `Read a receipt with the configured extraction provider and print the
normalized draft document as JSON.

Every line is reconciled with the IGV rate. Lines that only show a total get
their base price derived from it. Warnings point at fields that need a second
look, and each line lists its closest catalog products when --sender is set.

When a folder is given, every supported file in it is processed in parallel
and one JSON array is printed.

Required environment variables:
  EXTRACTION_PROVIDER - openai (default) or documentai
  OPENAI_API_KEY - for the openai provider
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID - for the documentai provider
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - for documentai and PDF OCR

Optional environment variables:
  BATCH_WORKERS - Number of parallel workers for folders (default: 4)`,
	Example: `  # Draft a single receipt
  boleta extract boleta.jpg --sender 1 -o draft.json

  # Draft every receipt in a folder
  boleta extract ./recibos --sender 1 -o drafts.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// batchOutput is one element of the folder output.
type batchOutput struct {
	File   string                `json:"file"`
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
	Draft  *services.DraftResult `json:"draft,omitempty"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Uint("sender", 0, "Sender id, enables catalog suggestions")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Int("workers", 0, "Parallel workers for folders (default: BATCH_WORKERS)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	path := args[0]
	senderID, _ := cmd.Flags().GetUint("sender")
	outputPath, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("receipt not found: %s", path)
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, true, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !info.IsDir() {
		start := time.Now()
		result, err := a.service.DraftFromFile(ctx, path, senderID)
		if err != nil {
			return handleExtractionError(err, log)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
		}
		log.Info().
			Str("file", path).
			Dur("duration", time.Since(start)).
			Str("total", result.Document.Summary.GrandTotal.StringFixed(2)).
			Msg("Receipt extracted")
		return writeJSON(result, outputPath, log)
	}

	files, err := issuance.FindReceipts(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No receipts found in folder.")
		return nil
	}
	if workers <= 0 {
		workers = a.cfg.BatchWorkers
	}

	fmt.Fprintf(os.Stderr, "Processing %d receipts with %d workers...\n", len(files), workers)

	results := a.service.ExtractBatch(ctx, files, senderID, workers, func(done, total int, r issuance.BatchResult) {
		line := fmt.Sprintf("[%d/%d] %s - %s", done, total, r.Filename, statusEmoji(r.Status))
		if r.Err != nil {
			line += fmt.Sprintf(" (%s)", r.Err)
		} else if r.Draft != nil {
			line += fmt.Sprintf(" (S/ %s)", r.Draft.Document.Summary.GrandTotal.StringFixed(2))
		}
		fmt.Fprintln(os.Stderr, line)
	})

	counts := map[string]int{}
	out := make([]batchOutput, 0, len(results))
	for _, r := range results {
		counts[r.Status]++
		o := batchOutput{File: filepath.Base(r.Path), Status: r.Status, Draft: r.Draft}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		out = append(out, o)
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("=", 50))
	fmt.Fprintf(os.Stderr, "Success: %d  Warnings: %d  Errors: %d\n",
		counts[issuance.StatusSuccess], counts[issuance.StatusWarning], counts[issuance.StatusError])

	log.Info().
		Int("total", len(files)).
		Int("success", counts[issuance.StatusSuccess]).
		Int("warnings", counts[issuance.StatusWarning]).
		Int("errors", counts[issuance.StatusError]).
		Msg("Batch extraction completed")

	return writeJSON(out, outputPath, log)
}

func statusEmoji(status string) string {
	switch status {
	case issuance.StatusSuccess:
		return "✅"
	case issuance.StatusWarning:
		return "⚠️"
	case issuance.StatusError:
		return "❌"
	default:
		return "❓"
	}
}
