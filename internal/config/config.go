// Package config resolves process settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/internal/observability"
)

// Environment variables read by Load.
const (
	EnvBaselineDSN         = "SIM_BASELINE_DSN"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFormat           = "LOG_FORMAT"
	EnvMetricsFile         = "SIM_METRICS_FILE"
	EnvTracingEnabled      = "SIM_TRACING_ENABLED"
	EnvTracingExporter     = "SIM_TRACING_EXPORTER"
	EnvTracingServiceName  = "SIM_TRACING_SERVICE_NAME"
	EnvOTLPEndpoint        = "SIM_OTLP_ENDPOINT"
	EnvTracingSampleRatio  = "SIM_TRACING_SAMPLE_RATIO"
	defaultTracingExporter = "stdout"
	defaultServiceName     = "landuse-simulator"
)

// Config is the resolved process configuration.
type Config struct {
	// BaselineDSN locates the baseline store: a postgres:// URL, a
	// sqlite file path, or a .json lookup document.
	BaselineDSN string
	LogLevel    string
	LogFormat   string
	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string
	Tracing     observability.TracingConfig
}

// Load reads envFiles (ignoring missing ones) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	ratio := 1.0
	if raw := strings.TrimSpace(os.Getenv(EnvTracingSampleRatio)); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return Config{}, fmt.Errorf("config: %s must be a number in [0, 1], got %q", EnvTracingSampleRatio, raw)
		}
		ratio = parsed
	}
	exporter := strings.ToLower(os.Getenv(EnvTracingExporter))
	if exporter == "" {
		exporter = defaultTracingExporter
	}
	service := os.Getenv(EnvTracingServiceName)
	if service == "" {
		service = defaultServiceName
	}

	return Config{
		BaselineDSN: os.Getenv(EnvBaselineDSN),
		LogLevel:    os.Getenv(EnvLogLevel),
		LogFormat:   os.Getenv(EnvLogFormat),
		MetricsFile: os.Getenv(EnvMetricsFile),
		Tracing: observability.TracingConfig{
			Enabled:     strings.EqualFold(os.Getenv(EnvTracingEnabled), "true"),
			ServiceName: service,
			Exporter:    exporter,
			Endpoint:    os.Getenv(EnvOTLPEndpoint),
			SampleRatio: ratio,
		},
	}, nil
}

// Logger builds the process logger for c writing to out, or stderr when
// out is nil.
func (c Config) Logger(out io.Writer) logging.Logger {
	return logging.New(logging.Config{Level: c.LogLevel, Format: c.LogFormat, Output: out})
}
