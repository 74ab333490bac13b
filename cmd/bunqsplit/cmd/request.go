package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mvankampen/bunqsplit/pkg/db"
	"github.com/mvankampen/bunqsplit/pkg/engine"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

var (
	requestGets        []string
	requestDescription string
)

// requestCmd represents the request command.
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request amounts from one or more destinations",
	Long: `Create a single request batch with one payment request per
destination. Unlike split, the amounts are literal and not tied to any
transaction.

Example:
  bunqsplit request --get alice@example.com=12.50 --description "Dinner"
  bunqsplit request --get alice@example.com=12.50 --get +31612345678=7.50 --description "Tickets"`,
	Run: runRequest,
}

func init() {
	requestCmd.Flags().StringArrayVar(&requestGets, "get", nil, "destination=amount pair to request (repeatable)")
	requestCmd.Flags().StringVar(&requestDescription, "description", "", "description for the requests (required)")

	requestCmd.MarkFlagRequired("get")
	requestCmd.MarkFlagRequired("description")
}

func runRequest(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	allocations, total, err := requestAllocations()
	exitOnError(err, "invalid request arguments")

	ctx := context.Background()
	client := newClient(cfg)
	account := resolveAccount(ctx, client, cfg)

	emitter := engine.NewEmitter(client, account.ID, engine.DefaultRetryPolicy)
	err = emitter.Emit(ctx, engine.Batch{
		Allocations: allocations,
		Description: requestDescription,
		Currency:    cfg.Bunq.Currency,
	})
	exitOnErrorCode(err, "failed to create request batch", exitAborted)

	slog.Info("created request batch", "payees", len(allocations), "total", total.StringFixed(2))
	fmt.Printf("Requested %s %s from %d destination(s)\n",
		total.StringFixed(2), cfg.Bunq.Currency, len(allocations))

	recordOneShot(cfg.HistoryDB, cfg.Bunq.IBAN, "request", db.BatchRecord{
		Total:    total.StringFixed(2),
		Currency: cfg.Bunq.Currency,
		Payees:   len(allocations),
	})
}

// requestAllocations parses the --get destination=amount pairs.
func requestAllocations() ([]split.Allocation, decimal.Decimal, error) {
	allocations := make([]split.Allocation, 0, len(requestGets))
	total := decimal.Zero

	for _, pair := range requestGets {
		idx := strings.LastIndex(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, decimal.Zero, fmt.Errorf("invalid --get %q: expected destination=amount", pair)
		}

		pointer, err := split.ParsePointer(pair[:idx])
		if err != nil {
			return nil, decimal.Zero, err
		}

		amount, err := decimal.NewFromString(pair[idx+1:])
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("invalid amount in %q: %w", pair, err)
		}
		if !amount.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("amount in %q must be positive", pair)
		}

		rounded := amount.Round(2)
		total = total.Add(rounded)
		allocations = append(allocations, split.Allocation{
			Destination: pointer,
			Amount:      rounded,
		})
	}

	return allocations, total, nil
}

// recordOneShot records a single-batch command in the run history.
// History failures are logged, never fatal: the batch is already out.
func recordOneShot(historyDB, iban, mode string, batch db.BatchRecord) {
	conn, err := db.Open(historyDB)
	if err != nil {
		slog.Error("failed to open history database", "error", err)
		return
	}
	defer conn.Close()

	history := db.NewHistory(conn)
	runID := uuid.NewString()

	if err := history.RecordRun(db.Run{
		ID:          runID,
		AccountIBAN: iban,
		Mode:        mode,
		Reason:      "completed",
		Emitted:     1,
		StartedAt:   time.Now(),
	}); err != nil {
		slog.Error("failed to record run", "error", err)
		return
	}

	batch.RunID = runID
	batch.EventID = sql.NullInt64{}
	if err := history.RecordBatch(batch); err != nil {
		slog.Error("failed to record batch", "error", err)
	}
}
