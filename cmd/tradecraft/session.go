package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
	"github.com/tradecraft/storefront-cli/internal/auth"
	"github.com/tradecraft/storefront-cli/internal/logging"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if email == "" {
				email = prompt("Email: ")
			}
			if password == "" {
				password = prompt("Password: ")
			}

			resp, err := app.client.Login(app.ctx, api.LoginRequest{
				Email:    email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			if err := storeSession(app.store, resp); err != nil {
				return err
			}

			if resp.User != nil {
				fmt.Printf("Logged in as %s (%s)\n", resp.User.FullName, resp.User.Email)
			} else {
				fmt.Println("Logged in")
			}
			logging.Info("login succeeded for %s", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req api.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account and store the session tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			if req.Email == "" {
				req.Email = prompt("Email: ")
			}
			if req.Password == "" {
				req.Password = prompt("Password: ")
			}

			resp, err := app.client.Register(app.ctx, req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			if err := storeSession(app.store, resp); err != nil {
				return err
			}

			fmt.Printf("Account created for %s. Check your inbox for the verification email.\n", req.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number (optional)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and discard stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			// Best effort: the server-side logout can fail (expired
			// session), local tokens are cleared either way.
			if err := app.client.Logout(app.ctx); err != nil {
				logging.Warn("server logout failed: %v", err)
			}
			app.auth.Invalidate()

			fmt.Println("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			user, err := app.client.CurrentUser(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s <%s>\n", user.FullName, user.Email)
			fmt.Printf("  role: %s  status: %s  verified: %t\n",
				user.Role, user.Status, user.EmailVerified)
			if user.Phone != "" {
				fmt.Printf("  phone: %s\n", user.Phone)
			}
			return nil
		},
	}
}

// storeSession persists both tokens from an auth response.
func storeSession(store auth.Store, resp *api.AuthResponse) error {
	if err := store.Set(auth.KeyAccessToken, resp.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := store.Set(auth.KeyRefreshToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

func prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
