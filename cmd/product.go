package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"boleta/internal/billing"
	"boleta/internal/logger"
	"boleta/internal/matcher"
	"boleta/internal/store"
	"boleta/pkg/models"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage a sender's product catalog",
}

var productAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Add a product to the catalog",
	Example: `  boleta product add --sender 1 --name "Arroz Extra" --unit KG --price 4.50`,
	RunE:    runProductAdd,
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog of a sender",
	RunE:  runProductList,
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a catalog product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductDelete,
}

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productAddCmd, productListCmd, productDeleteCmd)

	productCmd.PersistentFlags().Uint("sender", 0, "Sender id")

	productAddCmd.Flags().String("name", "", "Product name [REQUIRED]")
	productAddCmd.Flags().String("unit", string(models.UnitUnit), "Unit (KILOGRAMO, CAJA, UNIDAD, BOLSA or KG, CJ, UN, BS)")
	productAddCmd.Flags().String("price", "", "Base (pre-IGV) unit price [REQUIRED]")
	productAddCmd.Flags().Bool("igv", false, "IGV applies")
	_ = productAddCmd.MarkFlagRequired("name")
	_ = productAddCmd.MarkFlagRequired("price")
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("product")

	senderID, err := senderFlag(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	unitStr, _ := cmd.Flags().GetString("unit")
	priceStr, _ := cmd.Flags().GetString("price")
	taxed, _ := cmd.Flags().GetBool("igv")

	unit, ok := models.ParseUnit(unitStr)
	if !ok {
		return fmt.Errorf("unknown unit %q", unitStr)
	}
	price, err := billing.ParseAmount(priceStr)
	if err != nil {
		return err
	}
	if !price.IsPositive() {
		return fmt.Errorf("price must be positive")
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := store.NewSenderRepository(a.db).Get(ctx, senderID); err != nil {
		return fmt.Errorf("sender %d: %w", senderID, err)
	}

	product := &models.Product{SenderID: senderID, Name: name, Unit: unit, Price: price, TaxApplies: taxed}
	created, err := store.NewProductRepository(a.db).FindOrCreate(ctx, product)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("Product already in catalog (id %d): %s\n", product.ID, matcher.FormatProduct(*product))
		return nil
	}
	fmt.Printf("Product %d added: %s\n", product.ID, matcher.FormatProduct(*product))
	return nil
}

func runProductList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("product")

	senderID, err := senderFlag(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := store.NewProductRepository(a.db).ListBySender(ctx, senderID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("The catalog is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCTO")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\n", p.ID, matcher.FormatProduct(p))
	}
	return w.Flush()
}

func runProductDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("product")

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := store.NewProductRepository(a.db).Delete(ctx, uint(id)); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	fmt.Printf("Product %d deleted\n", id)
	return nil
}
