package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/landuse-simulator/core"
	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/internal/observability"
	"github.com/signalsfoundry/landuse-simulator/internal/report"
	"github.com/signalsfoundry/landuse-simulator/internal/store"
	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// runOptions are the flags of the run command.
type runOptions struct {
	scenario    string
	baseline    string
	parameters  []string
	output      string
	format      string
	metricsFile string
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario and report its evaluation",
		Long: `Loads a scenario (JSON or YAML), reads baseline data from the store or a
JSON lookup document, projects every system to the target year and writes the
evaluation of the requested parameters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSimulation(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.scenario, "scenario", "s", "", "scenario file (.json, .yaml or .yml)")
	f.StringVarP(&opts.baseline, "baseline", "b", "", "baseline DSN or .json lookup document (defaults to SIM_BASELINE_DSN)")
	f.StringSliceVarP(&opts.parameters, "parameter", "p", nil, "evaluation parameters to report (default all)")
	f.StringVarP(&opts.output, "output", "o", "-", "report destination; - writes to stdout")
	f.StringVar(&opts.format, "format", "", "report format: table, json or xlsx (default from --output)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run (overrides SIM_METRICS_FILE)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func (a *app) runSimulation(ctx context.Context, opts runOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, log, runID := logging.WithRunLogger(ctx, a.log)

	params, err := parseParameters(opts.parameters)
	if err != nil {
		return err
	}
	format := opts.format
	if format == "" {
		format = report.FormatFromPath(opts.output)
	}
	if format == report.FormatXLSX && opts.output == "-" {
		return fmt.Errorf("xlsx reports need --output <file>")
	}

	shutdown, err := observability.InitTracing(ctx, a.cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	collector, err := observability.NewRunCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = a.cfg.MetricsFile
	}
	if metricsFile != "" {
		defer func() {
			if werr := collector.WriteTextfile(metricsFile); werr != nil {
				log.Warn(ctx, "metrics textfile not written", logging.String("path", metricsFile), logging.Err(werr))
			}
		}()
	}

	ctx, span := otel.Tracer("github.com/signalsfoundry/landuse-simulator/cmd/simulator").Start(ctx, "simulator.run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("scenario", opts.scenario),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	sc, err := core.LoadScenarioFile(opts.scenario)
	if err != nil {
		return err
	}
	dsn, err := a.baselineDSN(opts.baseline)
	if err != nil {
		return err
	}
	lookup, closeLookup, err := openBaseline(ctx, dsn, log)
	if err != nil {
		return err
	}
	defer closeLookup()

	engine, err := core.NewSimulationEngine(sc, lookup,
		core.WithLogger(log),
		core.WithMetricsRecorder(collector),
	)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("run scenario: %w", err)
	}

	sheets := report.Collect(engine, params...)
	if err := a.writeReport(opts.output, format, engine.Horizon.Years(), sheets); err != nil {
		return err
	}
	log.Info(ctx, "report written",
		logging.String("output", opts.output),
		logging.String("format", format),
		logging.Int("parameters", len(sheets)),
	)
	return nil
}

func (a *app) writeReport(output, format string, years []int, sheets []report.Sheet) error {
	if output == "-" || output == "" {
		return report.Write(a.stdout, format, years, sheets)
	}
	if format == report.FormatXLSX {
		return report.SaveWorkbook(output, years, sheets)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Write(f, format, years, sheets); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseParameters(raw []string) ([]model.Parameter, error) {
	params := make([]model.Parameter, 0, len(raw))
	for _, s := range raw {
		p, err := model.ParseParameter(s)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// openBaseline resolves dsn to a lookup. Paths ending in .json load an
// in-memory lookup document; everything else opens the SQL store.
func openBaseline(ctx context.Context, dsn string, log logging.Logger) (kb.Lookup, func(), error) {
	if strings.HasSuffix(strings.ToLower(dsn), ".json") {
		f, err := os.Open(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open baseline: %w", err)
		}
		defer f.Close()
		m, err := kb.LoadMemoryLookup(f)
		if err != nil {
			return nil, nil, err
		}
		log.Debug(ctx, "baseline loaded from document", logging.String("path", dsn))
		return m, func() {}, nil
	}

	st, err := store.Open(ctx, dsn, store.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	log.Debug(ctx, "baseline store opened", logging.String("driver", st.DriverName()))
	return st, func() {
		if err := st.Close(); err != nil {
			log.Warn(ctx, "close baseline store", logging.Err(err))
		}
	}, nil
}

