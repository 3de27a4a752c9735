package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"boleta/internal/logger"
	"boleta/pkg/services"
)

var issueCmd = &cobra.Command{
	Use:   "issue [document.json]",
	Short: "Record a finished document and submit it",
	Long: `Validate a finished document, record it in the local database and hand it
to the portal automation.

The client is matched against stored clients by name, DNI or RUC; products
are added to the sender catalog when new. The document gets the sender's
next series number (B01-03 for the third boleta of sender 1).

Submission writes the document to OUTBOX_DIR, or only logs it when
SUBMIT_MODE=dry-run. Only one document is submitted at a time. Issuing a
numbered document whose submission failed retries it under the same series.`,
	Example: `  boleta issue draft.json
  boleta issue draft.json --sender 1 -w`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)

	issueCmd.Flags().Uint("sender", 0, "Sender id, overrides the one in the document")
	issueCmd.Flags().BoolP("write", "w", false, "Write the numbered document back to the input file")
}

func runIssue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("issue")

	path := args[0]
	senderID, _ := cmd.Flags().GetUint("sender")
	write, _ := cmd.Flags().GetBool("write")

	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if senderID != 0 {
		doc.SenderID = senderID
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log = logger.WithSender("issue", doc.SenderID)

	outcomes := make(chan services.IssueOutcome, 1)
	taskID, err := a.service.Issue(ctx, doc, func(o services.IssueOutcome) { outcomes <- o })
	if err != nil {
		return handleIssueError(err, log)
	}
	log.Debug().Str("task_id", taskID).Msg("Issue started")

	a.service.Wait()
	outcome := <-outcomes

	if outcome.Invoice != nil {
		inv := outcome.Invoice
		fmt.Println(strings.Repeat("=", 50))
		fmt.Printf("%s %s\n", inv.DocumentType, inv.Series)
		fmt.Printf("Cliente: %s\n", inv.Client.Name)
		fmt.Printf("Subtotal: S/ %s\n", inv.Subtotal.StringFixed(2))
		fmt.Printf("IGV:      S/ %s\n", inv.TaxTotal.StringFixed(2))
		fmt.Printf("Total:    S/ %s\n", inv.Total.StringFixed(2))
		fmt.Printf("Estado:   %s\n", inv.Status)
		fmt.Println(strings.Repeat("=", 50))

		if write {
			if err := writeJSON(doc, path, log); err != nil {
				return err
			}
		}
	}

	if outcome.Err != nil {
		return handleIssueError(outcome.Err, log)
	}

	log.Info().
		Str("series", outcome.Invoice.Series).
		Dur("duration", outcome.Duration).
		Msg("Document issued")
	return nil
}
