// Package cmd provides CLI commands for bunqsplit.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvankampen/bunqsplit/pkg/bunq"
	"github.com/mvankampen/bunqsplit/pkg/config"
)

// Exit codes.
const (
	exitValidation = 1 // usage, destination or share validation failure
	exitAccount    = 2 // account resolution failure
	exitAborted    = 3 // reconciliation walk aborted mid-run
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bunqsplit",
	Short: "Split and request shares of bunq transactions",
	Long: `bunqsplit automates splitting bank transactions: it scans an
account's payment history, finds debits that have not been split yet,
computes per-payee amounts and creates idempotent request batches.

It supports:
- Backlog scans that stop at the last split checkpoint
- Bounded-period scans over a date window
- One-shot multi-destination requests
- Forwarding the account balance

Example:
  bunqsplit split --get alice@example.com=50% --get bob@example.com=50%
  bunqsplit split --start-date 2024-01-01 --period 31 --rules rules.yaml
  bunqsplit stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(forwardCmd)
	rootCmd.AddCommand(statsCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	exitOnErrorCode(err, msg, exitValidation)
}

func exitOnErrorCode(err error, msg string, code int) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(code)
	}
}

// loadConfig loads and validates the shared configuration.
func loadConfig() *config.Config {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	err = cfg.Validate(
		[]string{"bunq", "apiUrl"},
		[]string{"bunq", "apiKey"},
		[]string{"bunq", "iban"},
	)
	exitOnError(err, "invalid configuration")

	return cfg
}

// resolveAccount resolves the configured IBAN to a monetary account.
func resolveAccount(ctx context.Context, client *bunq.Client, cfg *config.Config) bunq.MonetaryAccount {
	account, err := client.ResolveAccount(ctx, bunq.PointerTypeIBAN, cfg.Bunq.IBAN)
	exitOnErrorCode(err, fmt.Sprintf("failed to resolve account %s", cfg.Bunq.IBAN), exitAccount)

	slog.Debug("resolved account", "iban", cfg.Bunq.IBAN, "account_id", account.ID)
	return account
}

// newClient builds the API client from configuration.
func newClient(cfg *config.Config) *bunq.Client {
	return bunq.NewClient(bunq.ClientConfig{
		APIURL: cfg.Bunq.APIURL,
		APIKey: cfg.Bunq.APIKey,
	})
}
