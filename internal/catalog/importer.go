package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"boleta/internal/logger"
	"boleta/internal/store"
	"boleta/pkg/models"
)

// Stats counts what an import inserted and what already existed.
type Stats struct {
	ProductsCreated  int `json:"products_created"`
	ProductsExisting int `json:"products_existing"`
	ClientsCreated   int `json:"clients_created"`
	ClientsExisting  int `json:"clients_existing"`
}

// Importer stores catalog rows for one sender.
type Importer struct {
	tx       store.TransactionManager
	products store.ProductRepository
	clients  store.ClientRepository
	log      zerolog.Logger
}

func NewImporter(tx store.TransactionManager, products store.ProductRepository, clients store.ClientRepository) *Importer {
	return &Importer{
		tx:       tx,
		products: products,
		clients:  clients,
		log:      logger.WithComponent("catalog-import"),
	}
}

// Import upserts products under senderID and clients in one transaction.
// Rows already present are counted, not duplicated.
func (im *Importer) Import(ctx context.Context, senderID uint, products []models.Product, clients []models.ClientInfo) (Stats, error) {
	const op = "catalog.Import"
	var stats Stats

	err := im.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range products {
			p := products[i]
			p.SenderID = senderID
			created, err := im.products.FindOrCreate(txCtx, &p)
			if err != nil {
				return fmt.Errorf("product %q: %w", p.Name, err)
			}
			if created {
				stats.ProductsCreated++
			} else {
				stats.ProductsExisting++
			}
		}
		for _, c := range clients {
			_, created, err := im.clients.FindOrCreate(txCtx, c)
			if err != nil {
				return fmt.Errorf("client %q: %w", c.Name, err)
			}
			if created {
				stats.ClientsCreated++
			} else {
				stats.ClientsExisting++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	im.log.Info().
		Uint("sender_id", senderID).
		Int("products_created", stats.ProductsCreated).
		Int("clients_created", stats.ClientsCreated).
		Msg("Catalog imported")
	return stats, nil
}
