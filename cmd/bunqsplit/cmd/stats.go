package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvankampen/bunqsplit/pkg/config"
	"github.com/mvankampen/bunqsplit/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display run statistics",
	Long: `Display statistics about recorded runs and emitted request
batches.

Shows:
- Total number of runs
- Total number of emitted request batches
- Last run timestamp

Example:
  bunqsplit stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	err = cfg.Validate([]string{"historyDb"})
	exitOnError(err, "invalid configuration")

	slog.Debug("opening history database", "path", cfg.HistoryDB)
	conn, err := db.Open(cfg.HistoryDB)
	exitOnError(err, "failed to open history database")
	defer conn.Close()

	history := db.NewHistory(conn)

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Run Statistics ===")
	fmt.Printf("Total runs:    %d\n", stats.TotalRuns)
	fmt.Printf("Total batches: %d\n", stats.TotalBatches)

	if stats.LastRun.Valid {
		fmt.Printf("Last run:      %s\n", stats.LastRun.String)
	} else {
		fmt.Printf("Last run:      (never)\n")
	}

	fmt.Println()
}
