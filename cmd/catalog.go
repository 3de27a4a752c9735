package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"boleta/internal/catalog"
	"boleta/internal/logger"
	"boleta/internal/sheets"
	"boleta/internal/store"
	"boleta/pkg/models"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Work with catalogs kept in Google Sheets",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import products and clients from Google Sheets",
	Long: `Import the "Productos" and "Clientes" worksheets of the spreadsheet at
GOOGLE_SHEET_URL into the local database.

Productos columns: Nombre, Unidad, Precio, IGV (Sí/No)
Clientes columns:  Nombre, DNI, RUC

Malformed rows are skipped with a warning. Rows already stored are not
duplicated, so the import can be run again after editing the sheet.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL`,
	Example: `  boleta catalog import --sender 1
  boleta catalog import --sender 1 --dry-run`,
	RunE: runCatalogImport,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)

	catalogImportCmd.Flags().Uint("sender", 0, "Sender the products belong to [REQUIRED]")
	catalogImportCmd.Flags().Bool("dry-run", false, "Read the sheets without storing anything")
	catalogImportCmd.Flags().Bool("skip-clients", false, "Only import products")
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("catalog")

	senderID, err := senderFlag(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipClients, _ := cmd.Flags().GetBool("skip-clients")

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireSheets(); err != nil {
		return err
	}
	if _, err := store.NewSenderRepository(a.db).Get(ctx, senderID); err != nil {
		return fmt.Errorf("sender %d: %w", senderID, err)
	}

	sheetsService, err := sheets.NewSheetsService(ctx, a.cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("failed to create Google Sheets service: %w", err)
	}
	reader := catalog.NewReader(sheetsService)

	products, err := reader.ReadProducts(ctx)
	if err != nil {
		return err
	}
	var clients []models.ClientInfo
	if !skipClients {
		clients, err = reader.ReadClients(ctx)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Read %d products and %d clients\n", len(products), len(clients))
	if dryRun {
		return nil
	}

	importer := catalog.NewImporter(store.NewTransactionManager(a.db), store.NewProductRepository(a.db), store.NewClientRepository(a.db))
	stats, err := importer.Import(ctx, senderID, products, clients)
	if err != nil {
		return err
	}

	fmt.Printf("Products: %d new, %d already stored\n", stats.ProductsCreated, stats.ProductsExisting)
	fmt.Printf("Clients:  %d new, %d already stored\n", stats.ClientsCreated, stats.ClientsExisting)
	return nil
}
