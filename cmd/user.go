package main

import (
	"context"
	"fmt"
	"librarian/internal/config"
	"librarian/internal/ledger"
	"librarian/pkg/domain"

	"github.com/spf13/cobra"
)

func userCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manages borrowers",
	}

	add := &cobra.Command{
		Use:   "add <user-id> <name>",
		Short: "Registers a borrower",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			user, err := lib.AddUser(ctx, domain.UserID(args[0]), args[1])
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), user)

			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <user-id> <name>",
		Short: "Renames a borrower",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			user, err := lib.UpdateUser(ctx, domain.UserID(args[0]), args[1])
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), user)

			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Removes a borrower who holds nothing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			if err := lib.DeleteUser(ctx, domain.UserID(args[0])); err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])

			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"search"},
		Short:   "Lists borrowers, optionally matching a name or user id",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			for _, user := range lib.Users(ctx, query) {
				fmt.Fprintln(cmd.OutOrStdout(), user)
			}

			return nil
		},
	}

	cmd.AddCommand(add, update, del, list)

	return cmd
}
