package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"boleta/internal/billing"
	"boleta/internal/logger"
	"boleta/internal/store"
	"boleta/pkg/models"
)

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Manage the senders documents are issued for",
}

var senderAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Register a sender with its portal credentials",
	Example: `  boleta sender add --name "Bodega Don Lucho" --ruc 10456789012 --user DLUCHO01 --password secreto`,
	RunE:    runSenderAdd,
}

var senderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered senders",
	RunE:  runSenderList,
}

var senderDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a sender",
	Args:  cobra.ExactArgs(1),
	RunE:  runSenderDelete,
}

func init() {
	rootCmd.AddCommand(senderCmd)
	senderCmd.AddCommand(senderAddCmd, senderListCmd, senderDeleteCmd)

	senderAddCmd.Flags().String("name", "", "Business name [REQUIRED]")
	senderAddCmd.Flags().String("ruc", "", "RUC, 11 digits [REQUIRED]")
	senderAddCmd.Flags().String("user", "", "Portal user")
	senderAddCmd.Flags().String("password", "", "Portal password")
	_ = senderAddCmd.MarkFlagRequired("name")
	_ = senderAddCmd.MarkFlagRequired("ruc")
}

func runSenderAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sender")

	name, _ := cmd.Flags().GetString("name")
	ruc, _ := cmd.Flags().GetString("ruc")
	user, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")

	if err := billing.ValidateTaxID(ruc); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sender := &models.Sender{Name: name, RUC: ruc, PortalUser: user, PortalPassword: password}
	if err := store.NewSenderRepository(a.db).Create(ctx, sender); err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}

	fmt.Printf("Sender %d created: %s (RUC %s)\n", sender.ID, sender.Name, sender.RUC)
	return nil
}

func runSenderList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sender")

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	senders, err := store.NewSenderRepository(a.db).List(ctx)
	if err != nil {
		return err
	}
	if len(senders) == 0 {
		fmt.Println("No senders registered. Use 'boleta sender add'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tRUC\tUSUARIO")
	for _, s := range senders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Name, s.RUC, s.PortalUser)
	}
	return w.Flush()
}

func runSenderDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sender")

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid sender id %q", args[0])
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	a, err := newApp(ctx, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := store.NewSenderRepository(a.db).Delete(ctx, uint(id)); err != nil {
		return fmt.Errorf("failed to delete sender %d: %w", id, err)
	}
	fmt.Printf("Sender %d deleted\n", id)
	return nil
}
