// Command simulator projects land-use and emissions outcomes for a policy
// scenario and manages the baseline reference store it reads from.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/landuse-simulator/internal/config"
	"github.com/signalsfoundry/landuse-simulator/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries state resolved once per invocation.
type app struct {
	cfg    config.Config
	log    logging.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: logging.Noop()}

	var (
		envFile   string
		logLevel  string
		logFormat string
	)
	root := &cobra.Command{
		Use:           "simulator",
		Short:         "Land-use and emissions scenario simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			a.cfg = cfg
			a.log = cfg.Logger(a.stderr)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")

	root.AddCommand(
		newRunCmd(a),
		newImportCmd(a),
		newSchemaCmd(a),
	)
	return root
}

// baselineDSN prefers an explicit flag over SIM_BASELINE_DSN.
func (a *app) baselineDSN(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.BaselineDSN != "" {
		return a.cfg.BaselineDSN, nil
	}
	return "", fmt.Errorf("no baseline: pass --baseline or set %s", config.EnvBaselineDSN)
}
