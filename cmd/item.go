package main

import (
	"context"
	"fmt"
	"librarian/internal/config"
	"librarian/internal/ledger"
	"librarian/pkg/domain"

	"github.com/spf13/cobra"
)

func itemCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manages the catalog",
	}

	add := &cobra.Command{
		Use:   "add <isbn> <title> <author>",
		Short: "Adds an item to the catalog",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			item, err := lib.AddItem(ctx, domain.ItemID(args[0]), args[1], args[2])
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), item)

			return nil
		},
	}

	var title, author string
	update := &cobra.Command{
		Use:   "update <isbn>",
		Short: "Changes the title and/or author of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			item, err := lib.UpdateItem(ctx, domain.ItemID(args[0]), title, author)
			if err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintln(cmd.OutOrStdout(), item)

			return nil
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&author, "author", "", "new author")

	del := &cobra.Command{
		Use:   "delete <isbn>",
		Short: "Removes an item that is not lent out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			if err := lib.DeleteItem(ctx, domain.ItemID(args[0])); err != nil {
				return err //nolint: wrapcheck
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])

			return nil
		},
	}

	list := &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"search"},
		Short:   "Lists catalog items, optionally matching a title, author or isbn",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			lib, closeStrg := getLibrary(ctx, cfg, ledger.NewOptions(cfg))
			defer closeStrg()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			for _, item := range lib.Items(ctx, query) {
				fmt.Fprintln(cmd.OutOrStdout(), item)
			}

			return nil
		},
	}

	cmd.AddCommand(add, update, del, list)

	return cmd
}
