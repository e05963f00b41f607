package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tiervc/internal/config"
	"tiervc/internal/evaluation"
	"tiervc/internal/exporter"
	"tiervc/internal/infrastructure"
	"tiervc/internal/providers"
	"tiervc/internal/services"
	"tiervc/internal/spreadsheet"
	"tiervc/internal/stream"
	"tiervc/internal/validation"
	"tiervc/pkg/contracts/events"
)

type evaluateOptions struct {
	out         string
	sheetID     string
	sheetRange  string
	concurrency int
	asJSON      bool
	verbose     bool
}

func newEvaluateCmd() *cobra.Command {
	var opts evaluateOptions
	cmd := &cobra.Command{
		Use:   "evaluate [file]",
		Short: "Evaluate a CSV/XLSX file or a Google Sheet",
		Long: `Run every startup of a spreadsheet through market analysis, team analysis
and judging, print progress as it happens and write the ranked workbook.

Provider credentials are read from the environment (or .env) exactly as the
server reads them.`,
		Example: `  tierctl evaluate startups.xlsx --out results.xlsx
  tierctl evaluate --sheet-id 1AbC... --range "Pipeline!A1:L"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.sheetID == "" {
				return fmt.Errorf("pass a file or --sheet-id")
			}
			if len(args) == 1 && opts.sheetID != "" {
				return fmt.Errorf("pass either a file or --sheet-id, not both")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !opts.verbose {
				cfg.Logging.Level = "warn"
			}
			cfg.Logging.Output = "console"
			logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			files := validation.NewFileValidator(logger)
			if err := files.ValidateOutputFile(opts.out, ".xlsx", ".csv"); err != nil {
				return err
			}
			if len(args) == 1 {
				if err := files.ValidateSpreadsheet(args[0], cfg.Security.MaxUploadBytes); err != nil {
					return err
				}
			}

			scoring, err := providers.NewScoringProviders(ctx, cfg.Providers, logger)
			if err != nil {
				return err
			}
			if opts.concurrency > 0 {
				cfg.Evaluation.Concurrency = opts.concurrency
			}
			svc := newLocalService(cfg, scoring, logger)

			var sub *services.Submission
			if opts.sheetID != "" {
				source, err := spreadsheet.NewSheetsSource(ctx, cfg.Sheets.CredentialsFile, logger)
				if err != nil {
					return err
				}
				if opts.sheetRange == "" {
					opts.sheetRange = cfg.Sheets.DefaultRange
				}
				sub, err = svc.ImportSheet(ctx, source, opts.sheetID, opts.sheetRange)
				if err != nil {
					return err
				}
			} else {
				content, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				sub, err = svc.ParseUpload(ctx, filepath.Base(args[0]), content)
				if err != nil {
					return err
				}
			}

			return runEvaluate(ctx, cmd.OutOrStdout(), svc, sub, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", spreadsheet.ResultsFilename, "results file to write (.xlsx or .csv)")
	cmd.Flags().StringVar(&opts.sheetID, "sheet-id", "", "Google Sheet id to read instead of a file")
	cmd.Flags().StringVar(&opts.sheetRange, "range", "", "A1 range of the sheet (default from config)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "records evaluated at once (0 = all)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print events as JSON lines")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of warn")
	return cmd
}

func newLocalService(cfg *config.Config, scoring providers.ScoringProviders, logger *slog.Logger) *services.EvaluationService {
	return services.NewEvaluationService(
		spreadsheet.NewParser(cfg.Evaluation.MaxRecords, logger),
		evaluation.NewEvaluator(scoring, nil, logger),
		evaluation.NewMemoryStore(1),
		nil,
		nil,
		nil,
		services.EvaluationOptions{
			Concurrency:   cfg.Evaluation.Concurrency,
			RecordTimeout: cfg.Evaluation.RecordTimeout,
			IdleTimeout:   cfg.Stream.IdleTimeout,
		},
		logger,
	)
}

// runEvaluate streams sub through svc to w and writes the workbook to opts.out
func runEvaluate(ctx context.Context, w io.Writer, svc *services.EvaluationService, sub *services.Submission, opts evaluateOptions) error {
	run, err := svc.Begin(sub)
	if err != nil {
		return err
	}

	sink := textSink(w)
	if opts.asJSON {
		sink = jsonSink(w)
	}
	batch, err := run.Stream(ctx, sink)
	if err != nil {
		return err
	}

	file, err := svc.Export(ctx, batch, exporter.FormatFromFilename(opts.out))
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, file.Data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	if !opts.asJSON {
		fmt.Fprintf(w, "Results written to %s\n", opts.out)
	}
	return nil
}

func jsonSink(w io.Writer) stream.Sink {
	return func(e events.Event) error {
		data, err := events.Marshal(e)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
}

func textSink(w io.Writer) stream.Sink {
	return func(e events.Event) error {
		var err error
		switch e := e.(type) {
		case events.Mapping:
			_, err = fmt.Fprintf(w, "Found %d startups. Columns: %s\n", e.Count, formatMapping(e.Mapping))
		case events.Startups:
			_, err = fmt.Fprintf(w, "Evaluating: %s\n", strings.Join(e.Names, ", "))
		case events.Log:
			_, err = fmt.Fprintf(w, "  %s\n", e.Message)
		case events.Result:
			_, err = fmt.Fprintf(w, "  %s: market %d, team %d, final %d\n",
				e.Startup, e.Market.MarketScore, e.Team.TeamScore, e.Judge.FinalScore)
		case events.Complete:
			_, err = fmt.Fprintf(w, "Done: %d evaluated, %d failed. Tier 1: %d, Tier 2: %d, Tier 3: %d\n",
				e.Total, e.Failed, e.TierCounts[1], e.TierCounts[2], e.TierCounts[3])
		case events.Error:
			_, err = fmt.Fprintf(w, "Error: %s\n", e.Message)
		}
		return err
	}
}

func formatMapping(m map[string]string) string {
	fields := make([]string, 0, len(m))
	for field, column := range m {
		if column != "" {
			fields = append(fields, field+"="+column)
		}
	}
	slices.Sort(fields)
	return strings.Join(fields, ", ")
}
