package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mvankampen/bunqsplit/pkg/db"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

var (
	forwardDestination string
	forwardDescription string
)

// forwardCmd represents the forward command.
var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Forward the account balance to another destination",
	Long: `Pay out the account's full current balance to a single
destination.

Example:
  bunqsplit forward --destination "NL91ABNA0417164300,Jane Doe"
  bunqsplit forward --destination alice@example.com --description "Sweep"`,
	Run: runForward,
}

func init() {
	forwardCmd.Flags().StringVar(&forwardDestination, "destination", "", "destination to forward to (required)")
	forwardCmd.Flags().StringVar(&forwardDescription, "description", "Forwarded by bunqsplit", "description for the payment")

	forwardCmd.MarkFlagRequired("destination")
}

func runForward(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	pointer, err := split.ParsePointer(forwardDestination)
	exitOnError(err, "invalid destination")

	ctx := context.Background()
	client := newClient(cfg)
	account := resolveAccount(ctx, client, cfg)

	if !account.Balance.Value.IsPositive() {
		fmt.Printf("Nothing to forward: balance is %s %s\n",
			account.Balance.Value.StringFixed(2), account.Balance.Currency)
		return
	}

	err = client.CreatePayment(ctx, account.ID, account.Balance, pointer, forwardDescription)
	exitOnErrorCode(err, "failed to create payment", exitAborted)

	slog.Info("forwarded balance",
		"destination", pointer.Value,
		"amount", account.Balance.Value.StringFixed(2),
	)
	fmt.Printf("Forwarded %s %s to %s\n",
		account.Balance.Value.StringFixed(2), account.Balance.Currency, pointer.Value)

	conn, err := db.Open(cfg.HistoryDB)
	if err != nil {
		slog.Error("failed to open history database", "error", err)
		return
	}
	defer conn.Close()

	if err := db.NewHistory(conn).RecordRun(db.Run{
		ID:          uuid.NewString(),
		AccountIBAN: cfg.Bunq.IBAN,
		Mode:        "forward",
		Reason:      "completed",
		Emitted:     1,
		StartedAt:   time.Now(),
	}); err != nil {
		slog.Error("failed to record run", "error", err)
	}
}
