package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
)

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Browse the catalog category tree",
	}
	cmd.AddCommand(
		newCategoriesListCmd(),
		newCategoriesGetCmd(),
	)
	return cmd
}

func newCategoriesListCmd() *cobra.Command {
	var (
		rootOnly   bool
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog category tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			var categories []api.Category
			switch {
			case rootOnly:
				categories, err = app.client.RootCategories(app.ctx)
			case activeOnly:
				categories, err = app.client.ActiveCategories(app.ctx)
			default:
				categories, err = app.client.Categories(app.ctx)
			}
			if err != nil {
				return err
			}

			printCategoryTree(categories, 0)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rootOnly, "roots", false, "Only top-level categories")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active categories")
	return cmd
}

func newCategoriesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a category and its direct children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category ID %q", args[0])
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			category, err := app.client.CategoryByID(app.ctx, id)
			if err != nil {
				return err
			}
			children, err := app.client.ChildCategories(app.ctx, id)
			if err != nil {
				return err
			}

			printCategoryTree([]api.Category{*category}, 0)
			if len(children) > 0 {
				fmt.Println("\nChildren:")
				printCategoryTree(children, 1)
			}
			return nil
		},
	}
}

func printCategoryTree(categories []api.Category, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range categories {
		marker := ""
		if !c.IsActive {
			marker = "  [inactive]"
		}
		if c.ProductCount > 0 {
			fmt.Printf("%s%d  %s (%d products)%s\n", indent, c.ID, c.Name, c.ProductCount, marker)
		} else {
			fmt.Printf("%s%d  %s%s\n", indent, c.ID, c.Name, marker)
		}
		printCategoryTree(c.Children, depth+1)
	}
}
