package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"TourCast/internal/services/synth"
	applogger "TourCast/pkg/logger"
	"TourCast/pkg/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate and ingest synthetic tourism events",
	Long: `Generate one event per state per day and send them through the
configured ingest backend (warehouse or kafka).

Examples:
  tourctl seed                                   # 365 days from 2023-01-01
  tourctl seed --days 90 --start 2024-10-01      # one festival season
  tourctl seed --seed 7                          # a different deterministic sample`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("days", 365, "number of days to generate")
	seedCmd.Flags().String("start", "2023-01-01", "first day (YYYY-MM-DD)")
	seedCmd.Flags().Int64("seed", 42, "random seed")
}

func runSeed(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	startRaw, _ := cmd.Flags().GetString("start")
	seed, _ := cmd.Flags().GetInt64("seed")

	if days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	start, ok := util.ParseDate(startRaw)
	if !ok {
		return fmt.Errorf("--start %q is not a date", startRaw)
	}

	t, cleanup, err := tools()
	if err != nil {
		return err
	}
	defer cleanup()
	defer t.Close()

	records := synth.New(seed).Generate(start, days)
	bar := progressbar.Default(int64(len(records)), "ingesting")

	began := time.Now()
	err = t.Ingestor.Ingest(cmd.Context(), records, func(n int) { _ = bar.Add(n) })
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	t.Logger.Info("seed complete",
		applogger.Int("records", len(records)),
		applogger.String("backend", t.Ingestor.Backend()),
		applogger.String("start", start.Format(util.DateLayout)),
		applogger.Int("days", days),
		applogger.Duration("took", time.Since(began)),
	)
	return nil
}
