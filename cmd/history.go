package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"boleta/internal/logger"
	"boleta/internal/sheets"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the documents issued by a sender",
	Long: `List the documents issued by a sender, newest first.

With --export the history is appended to the GOOGLE_SHEET_WORKSHEET worksheet
(default "Historial") of the spreadsheet at GOOGLE_SHEET_URL.`,
	Example: `  boleta history --sender 1
  boleta history --sender 1 --details
  boleta history --sender 1 --export`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Uint("sender", 0, "Sender id [REQUIRED]")
	historyCmd.Flags().Bool("details", false, "Show the lines of each document")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
	historyCmd.Flags().Bool("export", false, "Append the history to Google Sheets")
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history")

	senderID, err := senderFlag(cmd)
	if err != nil {
		return err
	}
	details, _ := cmd.Flags().GetBool("details")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	export, _ := cmd.Flags().GetBool("export")

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if export {
		if err := a.cfg.RequireSheets(); err != nil {
			return err
		}
		sheetsService, err := sheets.NewSheetsService(ctx, a.cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		n, err := a.service.ExportHistory(ctx, senderID, sheetsService, a.cfg.GoogleSheetWorksheet)
		if err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Printf("Sheet: %s\n", a.cfg.GoogleSheetWorksheet)
		fmt.Printf("Rows added: %d\n", n)
		return nil
	}

	entries, err := a.service.History(ctx, senderID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(entries, "", log)
	}
	if len(entries) == 0 {
		fmt.Println("No documents issued yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIE\tTIPO\tFECHA\tCLIENTE\tTOTAL\tESTADO")
	for _, e := range entries {
		inv := e.Invoice
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\tS/ %s\t%s\n",
			inv.Series, inv.DocumentType, inv.IssueDate.Format("02/01/2006"), inv.Client.Name, inv.Total.StringFixed(2), inv.Status)
		if details {
			for _, l := range e.Lines {
				igv := ""
				if l.TaxApplies {
					igv = " +IGV"
				}
				fmt.Fprintf(w, "\t  %s %s\t%s\t\tS/ %s%s\t\n",
					l.Quantity.String(), l.Unit.Abbreviation(), l.ProductName, l.Total.StringFixed(2), igv)
			}
		}
	}
	return w.Flush()
}
