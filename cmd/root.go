package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boleta/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "boleta",
	Short: "Issue boletas and facturas from receipt photos",
	Long: `boleta turns photos and PDFs of handwritten or printed receipts into
electronic boletas and facturas.

Receipts are read with OpenAI or Google Document AI, every line is
reconciled against the IGV rate, products and clients are matched against
the local catalog, and issued documents are recorded in a local database
and handed to the tax portal automation through an outbox directory.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logger.Disable()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("boleta executed without subcommand")

		_ = cmd.Help()
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Int("timeout", 300, "Timeout in seconds")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Disable logging")
}
