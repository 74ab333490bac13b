package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mvankampen/bunqsplit/pkg/db"
	"github.com/mvankampen/bunqsplit/pkg/engine"
	"github.com/mvankampen/bunqsplit/pkg/rules"
	"github.com/mvankampen/bunqsplit/pkg/split"
)

var (
	splitGets     []string
	splitIncludes string
	splitExcludes string
	splitRules    string
	startDate     string
	periodDays    int
	dateFormat    string
	splitDryRun   bool
	absorbDrift   bool
	enforceTotal  bool
	splitPageSize int
)

// splitCmd represents the split command.
var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split unprocessed debits into payment requests",
	Long: `Scan the account's payment history and create a request batch for
every debit that has not been split yet.

Without --start-date the scan is a backlog scan: it walks backward from
the newest payment and stops at the first payment that already carries a
split reference. With --start-date (and optionally --period) the scan
covers that window and skips, but does not stop at, already split
payments.

Destinations are email addresses, "IBAN,Name" pairs or phone numbers.
Shares are percentages ("50%") or absolute amounts ("10.00").

Example:
  bunqsplit split --get alice@example.com=50% --get bob@example.com=50%
  bunqsplit split --get "NL91ABNA0417164300,Jane Doe"=25% --excludes NL20INGB0001234567
  bunqsplit split --rules rules.yaml --start-date 2024-01-01 --period 31 --dry-run`,
	Run: runSplit,
}

func init() {
	splitCmd.Flags().StringArrayVar(&splitGets, "get", nil, "destination=share pair to request (repeatable)")
	splitCmd.Flags().StringVar(&splitIncludes, "includes", "", "comma-separated counterparty IBANs to include")
	splitCmd.Flags().StringVar(&splitExcludes, "excludes", "", "comma-separated counterparty IBANs to exclude")
	splitCmd.Flags().StringVar(&splitRules, "rules", "", "YAML rule file with payees and filters")
	splitCmd.Flags().StringVar(&startDate, "start-date", "", "window start; enables a bounded-period scan")
	splitCmd.Flags().IntVar(&periodDays, "period", 0, "window length in days from --start-date")
	splitCmd.Flags().StringVar(&dateFormat, "date-format", "2006-01-02", "layout for --start-date")
	splitCmd.Flags().BoolVar(&splitDryRun, "dry-run", false, "compute allocations without creating requests")
	splitCmd.Flags().BoolVar(&absorbDrift, "absorb-drift", false, "add rounding drift to the last payee")
	splitCmd.Flags().BoolVar(&enforceTotal, "enforce-total", false, "reject rules that allocate more than the transaction amount")
	splitCmd.Flags().IntVar(&splitPageSize, "page-size", 0, "events per page (default 50, 200 for period scans)")
}

func runSplit(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	params, err := buildSplitParams()
	exitOnError(err, "invalid split arguments")

	ctx := context.Background()
	client := newClient(cfg)
	account := resolveAccount(ctx, client, cfg)

	params.AccountID = account.ID
	params.Currency = cfg.Bunq.Currency

	conn, err := db.Open(cfg.HistoryDB)
	exitOnError(err, "failed to open history database")
	defer conn.Close()
	history := db.NewHistory(conn)

	runID := uuid.NewString()
	startedAt := time.Now()

	allocator := split.Allocator{
		AbsorbDrift:  absorbDrift,
		EnforceTotal: enforceTotal,
	}

	// Batches are buffered and written after the run row: the batches
	// table references runs by foreign key.
	var emitted []engine.EmittedBatch
	runner := engine.NewRunner(client, allocator, engine.DefaultRetryPolicy)
	runner.OnEmitted = func(batch engine.EmittedBatch) {
		emitted = append(emitted, batch)
	}

	mode := "backlog"
	if params.Mode == engine.ModePeriod {
		mode = "period"
	}
	slog.Info("starting split walk", "mode", mode, "account_id", account.ID, "dry_run", splitDryRun)

	summary, runErr := runner.Run(ctx, params)

	skipped := summary.SkippedExcluded + summary.SkippedAlreadySplit + summary.SkippedNonDebit
	if err := history.RecordRun(db.Run{
		ID:          runID,
		AccountIBAN: cfg.Bunq.IBAN,
		Mode:        mode,
		Reason:      summary.Reason.String(),
		Emitted:     summary.Emitted,
		Skipped:     skipped,
		StartedAt:   startedAt,
	}); err != nil {
		slog.Error("failed to record run", "run_id", runID, "error", err)
	} else {
		for _, batch := range emitted {
			record := db.BatchRecord{
				RunID:     runID,
				EventID:   sql.NullInt64{Int64: batch.EventID, Valid: true},
				PaymentID: sql.NullInt64{Int64: batch.PaymentID, Valid: true},
				Total:     batch.Total.StringFixed(2),
				Currency:  cfg.Bunq.Currency,
				Payees:    batch.Payees,
			}
			if err := history.RecordBatch(record); err != nil {
				slog.Error("failed to record batch", "event_id", batch.EventID, "error", err)
			}
		}
	}

	exitOnErrorCode(runErr, "split walk aborted", exitAborted)

	fmt.Printf("Processed %d page(s): %d batch(es) emitted, %d skipped (%s)\n",
		summary.Pages, summary.Emitted, skipped, summary.Reason)
}

// buildSplitParams merges the rule file (when given) with the command
// line flags. Flags win over file values.
func buildSplitParams() (engine.Params, error) {
	var file *rules.RuleFile
	if splitRules != "" {
		loaded, err := rules.Load(splitRules)
		if err != nil {
			return engine.Params{}, err
		}
		file = loaded
	}

	entries, err := splitEntries(file)
	if err != nil {
		return engine.Params{}, err
	}
	if len(entries) == 0 {
		return engine.Params{}, fmt.Errorf("no payees given: use --get or a rule file")
	}

	includes := split.SplitCommaSeparated(splitIncludes)
	excludes := split.SplitCommaSeparated(splitExcludes)
	if file != nil {
		if len(includes) == 0 {
			includes = file.Includes
		}
		if len(excludes) == 0 {
			excludes = file.Excludes
		}
	}

	params := engine.Params{
		Mode:     engine.ModeBacklog,
		Criteria: engine.NewCriteria(includes, excludes),
		Rule:     entries,
		PageSize: splitPageSize,
		DryRun:   splitDryRun,
	}

	start, days, layout := startDate, periodDays, dateFormat
	if file != nil && file.Period != nil && start == "" {
		start = file.Period.Start
		if days == 0 {
			days = file.Period.Days
		}
		if file.Period.Format != "" {
			layout = file.Period.Format
		}
	}

	if start != "" {
		from, err := time.Parse(layout, start)
		if err != nil {
			return engine.Params{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}

		params.Mode = engine.ModePeriod
		params.Window.Start = from
		if days > 0 {
			params.Window.End = from.AddDate(0, 0, days)
		}
	} else if days > 0 {
		return engine.Params{}, fmt.Errorf("--period requires --start-date")
	}

	return params, nil
}

// splitEntries builds the allocator rule from --get pairs, falling
// back to the rule file payees.
func splitEntries(file *rules.RuleFile) ([]split.RuleEntry, error) {
	if len(splitGets) == 0 {
		if file == nil {
			return nil, nil
		}
		return file.Entries()
	}

	entries := make([]split.RuleEntry, 0, len(splitGets))
	for _, pair := range splitGets {
		// The destination may contain commas and an '=' never occurs in
		// one, so split on the last '='.
		idx := strings.LastIndex(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, fmt.Errorf("invalid --get %q: expected destination=share", pair)
		}

		pointer, err := split.ParsePointer(pair[:idx])
		if err != nil {
			return nil, err
		}

		share, err := split.ParseShare(pair[idx+1:])
		if err != nil {
			return nil, err
		}

		entries = append(entries, split.RuleEntry{Destination: pointer, Share: share})
	}

	return entries, nil
}
