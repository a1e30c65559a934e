// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/feedfilter/config"
	"github.com/cardinalhq/feedfilter/internal/feedfilter"
	"github.com/cardinalhq/feedfilter/internal/helpers"
)

// ErrRunCancelled is returned when a run stops on a signal before finishing.
var ErrRunCancelled = errors.New("run cancelled")

type filterOptions struct {
	pollInterval time.Duration
	summaryPath  string
	out          io.Writer
}

func init() {
	var opts filterOptions

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter a product feed into size-bounded CSV chunks",
		Example: `  feedfilter filter -i feed.csv
  feedfilter filter -i feed.csv.gz -o out -c 20 -d 2025-01-31 -x "9,42" -s 10MB --summary run.yaml`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "feedfilter"
			doneCtx, doneFx, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}

			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			cfg, err := config.Load(c.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			rc, err := cfg.Filter.RunConfig(time.Now())
			if err != nil {
				return err
			}

			opts.out = c.OutOrStdout()
			_, err = runFilter(doneCtx, rc, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP(config.FlagInput, "i", "", "Input feed (semicolon separated CSV, optionally .gz)")
	flags.StringP(config.FlagOutputDir, "o", "", "Output directory (default: the input file's directory)")
	flags.String(config.FlagBaseName, config.DefaultBaseName, "Chunk file name prefix; chunks are named <base-name>-<N>.csv")
	flags.Float64P(config.FlagMinCommission, "c", config.DefaultMinCommission, "Minimum commission rate in percent (inclusive)")
	flags.StringP(config.FlagEndDate, "d", "", "Drop rows whose endDate is before this date, YYYY-MM-DD (default: today)")
	flags.StringP(config.FlagExcludeCategories, "x", "", "Comma separated categoryId values to drop")
	flags.StringP(config.FlagMaxSize, "s", config.DefaultMaxSize, "Maximum chunk size, e.g. 5MB; 0 writes a single file")
	flags.StringVar(&opts.summaryPath, "summary", "", "Write a YAML run summary to this file")
	flags.DurationVar(&opts.pollInterval, "poll-interval", DefaultPollInterval, "How often progress is polled")

	rootCmd.AddCommand(cmd)
}

// runFilter runs one engine and renders its progress until it finishes. The
// engine and the renderer run as an errgroup; cancelling ctx stops the engine
// before its next row.
func runFilter(ctx context.Context, rc feedfilter.RunConfig, opts filterOptions) (feedfilter.Result, error) {
	if opts.out == nil {
		opts.out = io.Discard
	}

	queue := feedfilter.NewProgressQueue()
	engine := feedfilter.NewEngine(queue, rc)

	ll := slog.Default().With(slog.String("runID", engine.RunID()))
	ll.Info("Starting feed filter run",
		slog.String("input", rc.InputPath),
		slog.String("outputDir", rc.OutputDir),
		slog.Float64("minCommission", rc.MinCommission),
		slog.String("endDate", rc.CutoffDate.Format(feedfilter.DateLayout)),
		slog.Int("excludedCategories", rc.ExcludedCategories.Cardinality()),
		slog.String("maxChunkSize", helpers.FormatByteSize(rc.MaxChunkBytes)))

	start := time.Now()
	var res feedfilter.Result

	g := errgroup.Group{}
	g.Go(func() error {
		res = engine.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return renderProgress(queue, engine.Done(), opts.pollInterval, opts.out)
	})
	renderErr := g.Wait()

	elapsed := time.Since(start)
	if runDuration != nil {
		runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributeSet(commonAttributes),
			metric.WithAttributes(attribute.String("state", res.State.String())))
	}
	ll.Info("Feed filter run ended",
		slog.String("state", res.State.String()),
		slog.Int64("rowsRead", res.RowsRead),
		slog.Int64("rowsAccepted", res.RowsAccepted),
		slog.Int("chunks", len(res.Chunks)),
		slog.Duration("elapsed", elapsed))

	if opts.summaryPath != "" {
		if err := writeSummary(opts.summaryPath, newRunSummary(rc, res, time.Now())); err != nil {
			return res, err
		}
	}

	switch {
	case res.Err != nil:
		return res, res.Err
	case res.State == feedfilter.StateAborted:
		return res, ErrRunCancelled
	case renderErr != nil:
		return res, fmt.Errorf("render progress: %w", renderErr)
	}
	return res, nil
}
