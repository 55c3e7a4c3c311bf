// Package cli holds the root command and the settings shared by every
// subcommand.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/output"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/version"
	"github.com/willibrandon/gonuget-pm/core/resolver"
	"github.com/willibrandon/gonuget-pm/observability"
)

var rootCmd = &cobra.Command{
	Use:   "gonuget",
	Short: "Gather NuGet dependency information and plan package removal",
	Long: `gonuget gathers the dependency information an install or update needs from
your NuGet sources, and plans which packages a removal takes with it.

Settings can also be given as GONUGET_* environment variables, for example
GONUGET_MAX_PARALLELISM=4 or GONUGET_OUTPUT=json.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: startTracing,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Console is the global console for CLI commands
var Console *output.Console

var settings = viper.New()

var tracerProvider *sdktrace.TracerProvider

// Settings are the global options after flags, environment and defaults are
// merged.
type Settings struct {
	ConfigFile     string
	LogLevel       observability.LogLevel
	Output         output.Format
	MaxParallelism int
	RequestTimeout time.Duration
	HTTP3          bool
	NoCache        bool
	Trace          string
	OTLPEndpoint   string
	MetricsFile    string
}

func init() {
	Console = output.DefaultConsole()

	flags := rootCmd.PersistentFlags()
	flags.String("configfile", "", "NuGet configuration file to use")
	flags.String("log-level", "warning", "Diagnostic log level (verbose, debug, info, warning, error)")
	flags.StringP("output", "o", "text", "Result format (text, json, yaml)")
	flags.Int("max-parallelism", resolver.DefaultMaxDegreeOfParallelism, "Maximum concurrent source queries")
	flags.Duration("request-timeout", resolver.DefaultRequestTimeout, "Timeout for a single source query")
	flags.Bool("http3", false, "Try HTTP/3 when talking to remote sources")
	flags.Bool("no-cache", false, "Bypass the HTTP response cache")
	flags.String("trace", "none", "Trace exporter (none, stdout, otlp)")
	flags.String("otlp-endpoint", "localhost:4317", "OTLP collector address for --trace otlp")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file on exit")

	_ = settings.BindPFlags(flags)
	settings.SetEnvPrefix("GONUGET")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	settings.SetDefault("log-level", "warning")
	settings.SetDefault("output", "text")
	settings.SetDefault("max-parallelism", resolver.DefaultMaxDegreeOfParallelism)
	settings.SetDefault("request-timeout", resolver.DefaultRequestTimeout)
	settings.SetDefault("trace", "none")
	settings.SetDefault("otlp-endpoint", "localhost:4317")
}

// LoadSettings reads the merged global settings.
func LoadSettings() (*Settings, error) {
	level, err := observability.ParseLogLevel(settings.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(settings.GetString("output"))
	if err != nil {
		return nil, err
	}
	maxParallelism := settings.GetInt("max-parallelism")
	if maxParallelism < 1 {
		return nil, fmt.Errorf("max-parallelism must be at least 1, got %d", maxParallelism)
	}

	return &Settings{
		ConfigFile:     settings.GetString("configfile"),
		LogLevel:       level,
		Output:         format,
		MaxParallelism: maxParallelism,
		RequestTimeout: settings.GetDuration("request-timeout"),
		HTTP3:          settings.GetBool("http3"),
		NoCache:        settings.GetBool("no-cache"),
		Trace:          strings.ToLower(settings.GetString("trace")),
		OTLPEndpoint:   settings.GetString("otlp-endpoint"),
		MetricsFile:    settings.GetString("metrics-file"),
	}, nil
}

// NewLogger returns the diagnostic logger for s, writing to stderr.
func (s *Settings) NewLogger() observability.Logger {
	return observability.NewLogger(os.Stderr, s.LogLevel)
}

func startTracing(cmd *cobra.Command, _ []string) error {
	s, err := LoadSettings()
	if err != nil {
		return err
	}
	if s.Trace == "" || s.Trace == "none" {
		return nil
	}

	cfg := observability.DefaultTracerConfig()
	cfg.ServiceName = "gonuget"
	cfg.ServiceVersion = version.Version
	cfg.ExporterType = s.Trace
	cfg.OTLPEndpoint = s.OTLPEndpoint

	tp, err := observability.SetupTracing(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	tracerProvider = tp
	return nil
}

// finish flushes spans and writes the metrics file when requested.
func finish(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracerProvider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownTracing(shutdownCtx, tracerProvider); err != nil {
			Console.Warning("failed to flush traces: %v", err)
		}
		tracerProvider = nil
	}

	if path := settings.GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// ExecuteContext runs the root command with ctx as every command's context.
// Spans and the metrics file are flushed whether or not the command failed.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if finishErr := finish(ctx); finishErr != nil {
		if err == nil {
			return finishErr
		}
		Console.Warning("%v", finishErr)
	}
	return err
}

// SetupVersion configures version information after variables are set
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
