package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"TourCast/internal/domain/models"
	"TourCast/internal/usecase"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Run the forecast pipeline and print the outcome",
	Long: `Aggregate visitors for a filter, fit the configured engine and print
the ForecastOutcome.

Examples:
  tourctl forecast                                   # all states combined
  tourctl forecast --state Goa --granularity daily --horizon 90
  tourctl forecast --all-states --workers 8          # one outcome per state
  tourctl forecast --all-states --output table`,
	RunE: runForecast,
}

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().String("state", "", "state filter (empty or All for every state)")
	forecastCmd.Flags().String("region", "", "region filter")
	forecastCmd.Flags().String("granularity", string(models.Monthly), "daily or monthly")
	forecastCmd.Flags().Int("horizon", 0, "periods to forecast (default from config)")
	forecastCmd.Flags().Bool("all-states", false, "forecast every distinct state")
	forecastCmd.Flags().Int("workers", 4, "parallel pipelines with --all-states")
	forecastCmd.Flags().StringP("output", "o", "json", "json or table")
}

// outcomeSource is the part of the forecast use case the command needs.
type outcomeSource interface {
	Forecast(ctx context.Context, p usecase.ForecastParams) (*models.ForecastOutcome, error)
}

func runForecast(cmd *cobra.Command, args []string) error {
	state, _ := cmd.Flags().GetString("state")
	region, _ := cmd.Flags().GetString("region")
	gran, _ := cmd.Flags().GetString("granularity")
	horizon, _ := cmd.Flags().GetInt("horizon")
	allStates, _ := cmd.Flags().GetBool("all-states")
	workers, _ := cmd.Flags().GetInt("workers")
	output, _ := cmd.Flags().GetString("output")

	g := models.Granularity(gran)
	if !models.IsValidGranularity(g) {
		return fmt.Errorf("--granularity must be daily or monthly")
	}
	if output != "json" && output != "table" {
		return fmt.Errorf("--output must be json or table")
	}

	t, cleanup, err := tools()
	if err != nil {
		return err
	}
	defer cleanup()
	defer t.Close()

	if horizon == 0 {
		horizon = t.Forecast.DefaultHorizon()
	}
	base := models.Filter{Region: models.StringPtr(region), State: models.StringPtr(state)}
	ctx := cmd.Context()

	if !allStates {
		out, err := t.Forecast.Forecast(ctx, usecase.ForecastParams{Filter: base, Granularity: g, Horizon: horizon})
		if err != nil {
			return err
		}
		return render(output, []*models.ForecastOutcome{out}, out)
	}

	states, err := t.Dashboard.Dimension(ctx, models.DimState)
	if err != nil {
		return err
	}
	outs, err := forecastAll(ctx, t.Forecast, base, states, g, horizon, workers)
	if err != nil {
		return err
	}
	return render(output, outs, outs)
}

func render(output string, outs []*models.ForecastOutcome, raw interface{}) error {
	if output == "table" {
		return writeTable(os.Stdout, outs)
	}
	return writeJSON(os.Stdout, raw)
}

// forecastAll runs one pipeline per state with at most workers in flight.
// Results keep the order of states.
func forecastAll(ctx context.Context, src outcomeSource, base models.Filter, states []string, g models.Granularity, horizon, workers int) ([]*models.ForecastOutcome, error) {
	if workers < 1 {
		workers = 1
	}
	outs := make([]*models.ForecastOutcome, len(states))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, s := range states {
		i, s := i, s
		eg.Go(func() error {
			f := base
			f.State = models.StringPtr(s)
			out, err := src.Forecast(ctx, usecase.ForecastParams{Filter: f, Granularity: g, Horizon: horizon})
			if err != nil {
				return fmt.Errorf("state %s: %w", s, err)
			}
			outs[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
