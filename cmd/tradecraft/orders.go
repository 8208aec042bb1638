package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
)

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "View and manage orders",
	}
	cmd.AddCommand(
		newOrdersListCmd(),
		newOrdersGetCmd(),
		newOrdersCreateCmd(),
		newOrdersCancelCmd(),
		newOrdersExportCmd(),
	)
	return cmd
}

func newOrdersListCmd() *cobra.Command {
	var page api.PageRequest

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			orders, pagination, err := app.client.Orders(app.ctx, page)
			if err != nil {
				return err
			}

			if len(orders) == 0 {
				fmt.Println("No orders found")
				return nil
			}
			for _, o := range orders {
				fmt.Printf("%-20s  %-10s  %-8s  %8.2f %s  %s\n",
					o.OrderNumber, o.Status, o.PaymentStatus,
					o.Total, o.Currency, o.CreatedAt.Format("2006-01-02"))
			}
			printPagination(pagination)
			return nil
		},
	}

	cmd.Flags().IntVar(&page.Page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&page.Size, "size", 20, "Page size")
	return cmd
}

func newOrdersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <order-number>",
		Short: "Show a single order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			order, err := app.client.OrderByNumber(app.ctx, args[0])
			if err != nil {
				return err
			}

			printOrderDetail(order)
			return nil
		},
	}
}

func newOrdersCreateCmd() *cobra.Command {
	var (
		req  api.CreateOrderRequest
		addr api.Address
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Place an order from the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			req.ShippingAddress = addr
			order, err := app.client.CreateOrder(app.ctx, req)
			if err != nil {
				return fmt.Errorf("order failed: %w", err)
			}

			fmt.Printf("Order %s placed (%.2f %s, payment %s)\n",
				order.OrderNumber, order.Total, order.Currency, order.PaymentMethod)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.PaymentMethod, "payment-method", "COD", "Payment method (STRIPE, PAYPAL, COD)")
	cmd.Flags().StringVar(&req.CustomerNotes, "notes", "", "Notes for the seller")
	cmd.Flags().StringVar(&addr.FirstName, "first-name", "", "Recipient first name")
	cmd.Flags().StringVar(&addr.LastName, "last-name", "", "Recipient last name")
	cmd.Flags().StringVar(&addr.Phone, "phone", "", "Recipient phone")
	cmd.Flags().StringVar(&addr.AddressLine1, "address", "", "Address line 1")
	cmd.Flags().StringVar(&addr.AddressLine2, "address2", "", "Address line 2")
	cmd.Flags().StringVar(&addr.City, "city", "", "City")
	cmd.Flags().StringVar(&addr.State, "state", "", "State or province")
	cmd.Flags().StringVar(&addr.Country, "country", "", "Country code (e.g. CN, US)")
	cmd.Flags().StringVar(&addr.PostalCode, "postal-code", "", "Postal code")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("city")
	cmd.MarkFlagRequired("country")
	cmd.MarkFlagRequired("postal-code")
	return cmd
}

func newOrdersCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order ID %q", args[0])
			}

			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.client.CancelOrder(app.ctx, orderID); err != nil {
				return err
			}

			fmt.Printf("Order %d cancelled\n", orderID)
			return nil
		},
	}
}

func printOrderDetail(o *api.Order) {
	fmt.Printf("Order %s (#%d)\n", o.OrderNumber, o.ID)
	fmt.Printf("  status: %s  payment: %s/%s\n", o.Status, o.PaymentMethod, o.PaymentStatus)
	fmt.Printf("  placed: %s\n", o.CreatedAt.Format("2006-01-02 15:04"))
	if o.TrackingNumber != "" {
		fmt.Printf("  tracking: %s (%s)\n", o.TrackingNumber, o.Carrier)
	}
	fmt.Println()
	for _, item := range o.Items {
		fmt.Printf("  %-16s  %-36s  x%-3d  %8.2f\n",
			item.ProductSKU, truncate(item.ProductName, 36), item.Quantity, item.TotalPrice)
	}
	fmt.Printf("\n  subtotal: %8.2f\n", o.Subtotal)
	fmt.Printf("  shipping: %8.2f\n", o.ShippingFee)
	fmt.Printf("  tax:      %8.2f\n", o.Tax)
	fmt.Printf("  total:    %8.2f %s\n", o.Total, o.Currency)
	fmt.Printf("\n  ship to: %s %s, %s, %s %s, %s\n",
		o.ShippingAddress.FirstName, o.ShippingAddress.LastName,
		o.ShippingAddress.AddressLine1, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country)
}
