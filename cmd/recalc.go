package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"boleta/internal/billing"
	"boleta/internal/config"
	"boleta/internal/logger"
	"boleta/internal/store"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc [document.json]",
	Short: "Edit a draft document line and recompute its totals",
	Long: `Apply one edit to a line of a draft document and recompute the summary.

Edits follow the billing rules:
  --quantity  keeps the unit price and recomputes the line total
  --price     sets the base price and recomputes the line total
  --igv       switches IGV on or off keeping the line total
  --total     sets the line total and derives the base price

--product and --client accept a catalog suggestion by id. Without any edit
flag the summary is just recomputed.`,
	Example: `  # Change the quantity of the second line
  boleta recalc draft.json --line 2 --quantity 3 -w

  # Switch IGV on for the first line
  boleta recalc draft.json --line 1 --igv=true

  # Use catalog product 7 on line 1 and client 3 for the document
  boleta recalc draft.json --line 1 --product 7 --client 3 -w`,
	Args: cobra.ExactArgs(1),
	RunE: runRecalc,
}

func init() {
	rootCmd.AddCommand(recalcCmd)

	recalcCmd.Flags().Int("line", 0, "Line to edit (1-based)")
	recalcCmd.Flags().String("quantity", "", "New quantity")
	recalcCmd.Flags().String("price", "", "New base (pre-IGV) unit price")
	recalcCmd.Flags().String("total", "", "New line total")
	recalcCmd.Flags().Bool("igv", false, "Whether IGV applies to the line")
	recalcCmd.Flags().Uint("product", 0, "Catalog product id to use on the line")
	recalcCmd.Flags().Uint("client", 0, "Stored client id to use on the document")
	recalcCmd.Flags().Bool("remove", false, "Remove the line")
	recalcCmd.Flags().BoolP("write", "w", false, "Write the result back to the input file")
	recalcCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runRecalc(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("recalc")

	path := args[0]
	lineNum, _ := cmd.Flags().GetInt("line")
	productID, _ := cmd.Flags().GetUint("product")
	clientID, _ := cmd.Flags().GetUint("client")
	remove, _ := cmd.Flags().GetBool("remove")
	write, _ := cmd.Flags().GetBool("write")
	outputPath, _ := cmd.Flags().GetString("output")
	if write {
		outputPath = path
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	engine, err := billing.NewEngine(cfg.TaxRate)
	if err != nil {
		return err
	}

	event, err := editEvent(cmd)
	if err != nil {
		return err
	}

	needsLine := event != nil || productID != 0 || remove
	if needsLine && (lineNum < 1 || lineNum > len(doc.Products)) {
		return fmt.Errorf("--line must be between 1 and %d", len(doc.Products))
	}

	if productID != 0 || clientID != 0 {
		ctx, cancel := commandContext(cmd, log)
		defer cancel()

		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close(db)

		if productID != 0 {
			product, err := store.NewProductRepository(db).Get(ctx, productID)
			if err != nil {
				return fmt.Errorf("product %d: %w", productID, err)
			}
			if _, err := engine.SelectProduct(&doc.Products[lineNum-1], *product); err != nil {
				return err
			}
		}
		if clientID != 0 {
			client, err := store.NewClientRepository(db).Get(ctx, clientID)
			if err != nil {
				return fmt.Errorf("client %d: %w", clientID, err)
			}
			info := client.Info()
			id := client.ID
			doc.Client = &info
			doc.ClientID = &id
			doc.Type = billing.DefaultDocumentType(info)
		}
	}

	if event != nil {
		changed, err := engine.Apply(&doc.Products[lineNum-1], event)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if !changed {
			fmt.Fprintf(os.Stderr, "line %d unchanged\n", lineNum)
		}
	}

	if remove {
		doc.Products = append(doc.Products[:lineNum-1], doc.Products[lineNum:]...)
	}

	billing.Refresh(doc)

	for i, line := range doc.Products {
		if !engine.CheckLine(line) {
			fmt.Fprintf(os.Stderr, "⚠️  line %d does not satisfy the IGV formula, edit its price or total\n", i+1)
		}
	}

	log.Info().
		Int("products", len(doc.Products)).
		Str("grand_total", doc.Summary.GrandTotal.StringFixed(2)).
		Msg("Document recomputed")

	return writeJSON(doc, outputPath, log)
}

// editEvent builds the single line edit requested by the flags, or nil.
func editEvent(cmd *cobra.Command) (billing.Event, error) {
	var events []billing.Event

	parse := func(flag string) (decimal.Decimal, error) {
		raw, _ := cmd.Flags().GetString(flag)
		v, err := billing.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("--%s: %w", flag, err)
		}
		return v, nil
	}

	if cmd.Flags().Changed("quantity") {
		v, err := parse("quantity")
		if err != nil {
			return nil, err
		}
		events = append(events, billing.QuantityChanged{Quantity: v})
	}
	if cmd.Flags().Changed("price") {
		v, err := parse("price")
		if err != nil {
			return nil, err
		}
		events = append(events, billing.BasePriceChanged{BasePrice: v})
	}
	if cmd.Flags().Changed("total") {
		v, err := parse("total")
		if err != nil {
			return nil, err
		}
		events = append(events, billing.TotalChanged{Total: v})
	}
	if cmd.Flags().Changed("igv") {
		taxed, _ := cmd.Flags().GetBool("igv")
		events = append(events, billing.TaxFlagChanged{TaxApplies: taxed})
	}

	switch len(events) {
	case 0:
		return nil, nil
	case 1:
		return events[0], nil
	default:
		return nil, fmt.Errorf("only one of --quantity, --price, --total or --igv can be applied at a time")
	}
}
