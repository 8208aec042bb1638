package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the account profile and password",
	}
	cmd.AddCommand(
		newAccountGetCmd(),
		newAccountUpdateCmd(),
		newAccountPasswdCmd(),
		newAccountForgotPasswordCmd(),
		newAccountResetPasswordCmd(),
		newAccountVerifyEmailCmd(),
	)
	return cmd
}

func newAccountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Look up a user account by ID (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user ID %q", args[0])
			}

			user, err := app.client.UserByID(app.ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("%s <%s>\n", user.FullName, user.Email)
			fmt.Printf("  role: %s  status: %s  verified: %t\n",
				user.Role, user.Status, user.EmailVerified)
			return nil
		},
	}
}

func newAccountUpdateCmd() *cobra.Command {
	var req api.UpdateUserRequest

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the profile of the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			user, err := app.client.UpdateCurrentUser(app.ctx, req)
			if err != nil {
				return err
			}

			fmt.Printf("Profile updated: %s <%s>\n", user.FullName, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	cmd.MarkFlagRequired("first-name")
	cmd.MarkFlagRequired("last-name")
	return cmd
}

func newAccountPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			oldPassword := prompt("Current password: ")
			newPassword := prompt("New password: ")

			if err := app.client.ChangePassword(app.ctx, oldPassword, newPassword); err != nil {
				return err
			}

			fmt.Println("Password changed")
			return nil
		},
	}
}

func newAccountForgotPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.client.ForgotPassword(app.ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("Password reset mail sent to %s\n", args[0])
			return nil
		},
	}
}

func newAccountResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using a reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			newPassword := prompt("New password: ")
			if err := app.client.ResetPassword(app.ctx, args[0], newPassword); err != nil {
				return err
			}

			fmt.Println("Password reset. Log in with the new password.")
			return nil
		},
	}
}

func newAccountVerifyEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm the account email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if err := app.client.VerifyEmail(app.ctx, args[0]); err != nil {
				return err
			}

			fmt.Println("Email verified")
			return nil
		},
	}
}
