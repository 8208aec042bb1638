package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}
	cmd.AddCommand(
		newCartShowCmd(),
		newCartAddCmd(),
		newCartUpdateCmd(),
		newCartRemoveCmd(),
		newCartClearCmd(),
		newCartCountCmd(),
	)
	return cmd
}

func newCartCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of items in the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			count, err := app.client.CartCount(app.ctx)
			if err != nil {
				return err
			}

			fmt.Println(count)
			return nil
		},
	}
}

func newCartShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			items, err := app.client.Cart(app.ctx)
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Println("Cart is empty")
				return nil
			}

			var total float64
			for _, item := range items {
				name := fmt.Sprintf("product %d", item.ProductID)
				if item.Product != nil {
					name = item.Product.Name
				}
				fmt.Printf("%6d  %-40s  x%-3d  %8.2f\n",
					item.ID, truncate(name, 40), item.Quantity, item.Total)
				total += item.Total
			}
			fmt.Printf("\nTotal: %.2f\n", total)
			return nil
		},
	}
}

func newCartAddCmd() *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid product ID %q", args[0])
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			item, err := app.client.AddToCart(app.ctx, productID, quantity)
			if err != nil {
				return err
			}

			fmt.Printf("Added to cart (item %d, quantity %d)\n", item.ID, item.Quantity)
			return nil
		},
	}

	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Quantity to add")
	return cmd
}

func newCartUpdateCmd() *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Change the quantity of a cart item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cart item ID %q", args[0])
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			item, err := app.client.UpdateCartItem(app.ctx, itemID, quantity)
			if err != nil {
				return err
			}

			fmt.Printf("Updated item %d to quantity %d\n", item.ID, item.Quantity)
			return nil
		},
	}

	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "New quantity")
	cmd.MarkFlagRequired("quantity")
	return cmd
}

func newCartRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cart item ID %q", args[0])
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.client.RemoveFromCart(app.ctx, itemID); err != nil {
				return err
			}

			fmt.Printf("Removed item %d\n", itemID)
			return nil
		},
	}
}

func newCartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all items from the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.client.ClearCart(app.ctx); err != nil {
				return err
			}

			fmt.Println("Cart cleared")
			return nil
		},
	}
}
