package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"boleta/internal/logger"
	"boleta/pkg/services"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [product|client] [query]",
	Short: "Find catalog products or stored clients by approximate name",
	Long: `Rank catalog products of a sender, or stored clients, against a free text
query. Up to five matches scoring 60 or more are listed, best first.`,
	Example: `  boleta suggest product "arros superior" --sender 1
  boleta suggest client "juan perez" --json`,
	Args:      cobra.MinimumNArgs(2),
	ValidArgs: []string{"product", "client"},
	RunE:      runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Uint("sender", 0, "Sender whose catalog is searched (products only)")
	suggestCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("suggest")

	kind := strings.ToLower(args[0])
	query := strings.Join(args[1:], " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var suggestions []services.Suggestion
	switch kind {
	case "product", "producto":
		senderID, err := senderFlag(cmd)
		if err != nil {
			return err
		}
		suggestions, err = a.service.SuggestProducts(ctx, senderID, query)
		if err != nil {
			return err
		}
	case "client", "cliente":
		suggestions, err = a.service.SuggestClients(ctx, query)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q, use product or client", args[0])
	}

	if jsonOutput {
		return writeJSON(suggestions, "", log)
	}
	if len(suggestions) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("%4d  %3d  %s\n", s.ID, s.Score, s.Label)
	}
	return nil
}
