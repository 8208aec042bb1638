package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
)

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse and export the product catalog",
	}
	cmd.AddCommand(
		newProductsListCmd(),
		newProductsGetCmd(),
		newProductsSearchCmd(),
		newProductsFeaturedCmd(),
		newProductsExportCmd(),
	)
	return cmd
}

func newProductsListCmd() *cobra.Command {
	var (
		page     api.PageRequest
		filters  api.ProductFilters
		category int64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			var (
				products   []api.Product
				pagination *api.Pagination
			)
			if category > 0 {
				products, pagination, err = app.client.ProductsByCategory(app.ctx, category, page)
			} else {
				products, pagination, err = app.client.Products(app.ctx, page, filters)
			}
			if err != nil {
				return err
			}

			printProducts(products)
			printPagination(pagination)
			return nil
		},
	}

	cmd.Flags().IntVar(&page.Page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&page.Size, "size", 20, "Page size")
	cmd.Flags().StringVar(&page.Sort, "sort", "", "Sort expression (e.g. price,asc)")
	cmd.Flags().Int64Var(&category, "category", 0, "Restrict to a category ID")
	cmd.Flags().StringVar(&filters.Keyword, "keyword", "", "Filter by keyword")
	cmd.Flags().Float64Var(&filters.MinPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Float64Var(&filters.MaxPrice, "max-price", 0, "Maximum price")
	cmd.Flags().BoolVar(&filters.InStock, "in-stock", false, "Only products in stock")
	return cmd
}

func newProductsGetCmd() *cobra.Command {
	var sku string

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a single product by ID or SKU",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && sku == "" {
				return fmt.Errorf("either a product ID argument or --sku is required")
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			var product *api.Product
			if sku != "" {
				product, err = app.client.ProductBySKU(app.ctx, sku)
			} else {
				id, parseErr := strconv.ParseInt(args[0], 10, 64)
				if parseErr != nil {
					return fmt.Errorf("invalid product ID %q", args[0])
				}
				product, err = app.client.Product(app.ctx, id)
			}
			if err != nil {
				return err
			}

			printProductDetail(product)
			return nil
		},
	}

	cmd.Flags().StringVar(&sku, "sku", "", "Look up by SKU instead of ID")
	return cmd
}

func newProductsSearchCmd() *cobra.Command {
	var page api.PageRequest

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Full-text search over the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			products, pagination, err := app.client.SearchProducts(app.ctx, args[0], page)
			if err != nil {
				return err
			}

			printProducts(products)
			printPagination(pagination)
			return nil
		},
	}

	cmd.Flags().IntVar(&page.Page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&page.Size, "size", 20, "Page size")
	return cmd
}

func newProductsFeaturedCmd() *cobra.Command {
	var page api.PageRequest

	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List featured products",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			products, pagination, err := app.client.FeaturedProducts(app.ctx, page)
			if err != nil {
				return err
			}

			printProducts(products)
			printPagination(pagination)
			return nil
		},
	}

	cmd.Flags().IntVar(&page.Page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&page.Size, "size", 20, "Page size")
	return cmd
}

func printProducts(products []api.Product) {
	if len(products) == 0 {
		fmt.Println("No products found")
		return
	}
	for _, p := range products {
		stock := ""
		if !p.InStock {
			stock = "  [out of stock]"
		}
		fmt.Printf("%6d  %-16s  %-40s  %8.2f %s%s\n",
			p.ID, p.SKU, truncate(p.Name, 40), p.Price, p.Currency, stock)
	}
}

func printProductDetail(p *api.Product) {
	fmt.Printf("%s (#%d)\n", p.Name, p.ID)
	fmt.Printf("  sku: %s  category: %s\n", p.SKU, p.CategoryName)
	fmt.Printf("  price: %.2f %s  stock: %d  status: %s\n",
		p.Price, p.Currency, p.StockQuantity, p.Status)
	if len(p.Prices) > 0 {
		fmt.Print("  prices:")
		for currency, amount := range p.Prices {
			fmt.Printf(" %s=%.2f", currency, amount)
		}
		fmt.Println()
	}
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	for _, f := range p.Features {
		fmt.Printf("  - %s\n", f)
	}
}

func printPagination(p *api.Pagination) {
	if p == nil {
		return
	}
	fmt.Printf("\nPage %d/%d (%d items total)\n", p.Page+1, p.TotalPages, p.TotalElements)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
