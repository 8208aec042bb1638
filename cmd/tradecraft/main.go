package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradecraft/storefront-cli/internal/api"
	"github.com/tradecraft/storefront-cli/internal/auth"
	"github.com/tradecraft/storefront-cli/internal/backoff"
	"github.com/tradecraft/storefront-cli/internal/config"
	"github.com/tradecraft/storefront-cli/internal/logging"
)

var (
	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tradecraft",
		Short: "Command-line storefront client for the TradeCraft platform",
		Long: `A CLI client for the TradeCraft cross-border e-commerce backend.

Browse the catalog, manage your cart and orders, and export products or
order history to JSONL files with parallel workers, automatic token
refresh and rate limiting.`,
		Version:       version,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // We handle error output ourselves
	}

	// Setup flags
	config.SetupFlags(rootCmd)

	rootCmd.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newAccountCmd(),
		newProductsCmd(),
		newCategoriesCmd(),
		newCartCmd(),
		newOrdersCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logging.Close() // Ensure log file is flushed before exit
		os.Exit(1)
	}
}

// appContext bundles the shared pieces every command needs: the loaded
// config, the API client, and the components behind it.
type appContext struct {
	cfg     *config.Config
	client  *api.Client
	store   auth.Store
	auth    *auth.TokenAuthenticator
	backoff *backoff.GlobalBackoff

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup func()
}

// setup loads configuration and wires the full client pipeline. Every
// command goes through here so they all share the same HTTP client,
// credential store and backoff coordinator.
func setup(cmd *cobra.Command) (*appContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	cleanup := func() {}
	if cfg.LogFile != "" {
		if err := logging.Init(cfg.LogFile, cfg.Verbose); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
		cleanup = logging.Close
		logging.Info("configuration loaded: api-url=%s workers=%d page-size=%d",
			cfg.APIURL, cfg.Workers, cfg.PageSize)
	}

	// Setup context with signal handling using NotifyContext.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Shared HTTP client for connection pooling across all components
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	store, err := auth.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		cancel()
		cleanup()
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	// Language preference travels with the stored credentials so it
	// sticks across invocations.
	if cfg.Language != "" {
		if err := store.Set(auth.KeyLanguage, cfg.Language); err != nil {
			cancel()
			cleanup()
			return nil, fmt.Errorf("failed to store language preference: %w", err)
		}
	}

	authenticator := auth.NewTokenAuthenticator(httpClient, cfg.APIURL, store)
	authenticator.OnSessionInvalidated(func() {
		fmt.Fprintln(os.Stderr, "Session expired. Please run 'tradecraft login' again.")
	})

	bo := backoff.New(cfg.GetBackoffConfig())
	client := api.NewClient(httpClient, authenticator, store, bo, cfg.APIURL)

	return &appContext{
		cfg:     cfg,
		client:  client,
		store:   store,
		auth:    authenticator,
		backoff: bo,
		ctx:     ctx,
		cancel:  cancel,
		cleanup: cleanup,
	}, nil
}

func (a *appContext) close() {
	a.cancel()
	a.cleanup()
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
