package main

import (
	"context"
	"fmt"
	"librarian/internal/config"
	"librarian/internal/ledger"
	"librarian/pkg/domain"
	"time"

	"github.com/spf13/cobra"
)

// loanLayout is how loan dates are shown on the terminal.
const loanLayout = "2006-01-02 15:04"

func checkoutCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <user-id> <isbn>",
		Short: "Lends an available item to a borrower",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			loan, err := lib.Checkout(ctx, domain.UserID(args[0]), domain.ItemID(args[1]))
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s, due %s\n", loan, loan.DueTime.Local().Format(loanLayout))

			return nil
		},
	}
}

func returnCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "return <user-id> <isbn>",
		Short: "Closes the open loan of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			loan, err := lib.Return(ctx, domain.UserID(args[0]), domain.ItemID(args[1]))
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), loan)

			return nil
		},
	}
}

func loansCommand(cfg *config.Config) *cobra.Command {
	var (
		userID, itemID string
		openOnly       bool
	)

	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Lists loans in the order they were made",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			now := time.Now()
			for _, loan := range lib.Loans(ctx, ledger.Filter{
				UserID:   domain.UserID(userID),
				ItemID:   domain.ItemID(itemID),
				OpenOnly: openOnly,
			}) {
				line := fmt.Sprintf("%s, out %s, due %s", loan,
					loan.CheckoutTime.Local().Format(loanLayout), loan.DueTime.Local().Format(loanLayout))
				if !loan.IsOpen() {
					line += ", returned " + loan.ReturnTime.Local().Format(loanLayout)
				}
				if loan.Overdue(now) {
					line += " (overdue)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only loans of this user id")
	cmd.Flags().StringVar(&itemID, "item", "", "only loans of this isbn")
	cmd.Flags().BoolVar(&openOnly, "open", false, "only loans that are not returned")

	return cmd
}

func verifyCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Checks that availability, held items and open loans agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			if err := lib.Verify(ctx); err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), "library data is consistent")

			return nil
		},
	}
}
