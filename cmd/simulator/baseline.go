package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/internal/store"
	"github.com/signalsfoundry/landuse-simulator/internal/workbook"
)

func newImportCmd(a *app) *cobra.Command {
	var baseline string
	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import a baseline workbook into the store",
		Long: `Reads the baseline sheets of a workbook and replaces the matching tables
in the store. The schema is created first when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dsn, err := a.baselineDSN(baseline)
			if err != nil {
				return err
			}
			ds, err := workbook.ReadFile(args[0])
			if err != nil {
				return err
			}

			st, err := store.Open(ctx, dsn, store.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CreateSchema(ctx); err != nil {
				return err
			}
			counts, err := st.Import(ctx, ds)
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(counts))
			for t := range counts {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Fprintf(a.stdout, "%-14s %d rows\n", t, counts[t])
			}
			a.log.Info(ctx, "baseline imported",
				logging.String("workbook", args[0]),
				logging.String("driver", st.DriverName()),
				logging.Int("rows", ds.Len()),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&baseline, "baseline", "b", "", "target store DSN (defaults to SIM_BASELINE_DSN)")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var (
		baseline string
		apply    bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print or apply the baseline store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !apply {
				fmt.Fprintln(a.stdout, strings.Join(store.Schema, ";\n\n")+";")
				return nil
			}
			ctx := cmd.Context()
			dsn, err := a.baselineDSN(baseline)
			if err != nil {
				return err
			}
			st, err := store.Open(ctx, dsn, store.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.CreateSchema(ctx); err != nil {
				return err
			}
			a.log.Info(ctx, "schema applied", logging.String("driver", st.DriverName()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&baseline, "baseline", "b", "", "store DSN used with --apply (defaults to SIM_BASELINE_DSN)")
	cmd.Flags().BoolVar(&apply, "apply", false, "create the tables instead of printing the DDL")
	return cmd
}
