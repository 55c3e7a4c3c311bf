package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/output"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/version"
	"github.com/willibrandon/gonuget-pm/core/resolver"
	"github.com/willibrandon/gonuget-pm/observability"
)

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version.Version, GetVersion())
	assert.Contains(t, GetFullVersion(), "gonuget version "+version.Version)
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, observability.WarnLevel, s.LogLevel)
	assert.Equal(t, output.FormatText, s.Output)
	assert.Equal(t, resolver.DefaultMaxDegreeOfParallelism, s.MaxParallelism)
	assert.Equal(t, resolver.DefaultRequestTimeout, s.RequestTimeout)
	assert.Equal(t, "none", s.Trace)
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("GONUGET_MAX_PARALLELISM", "4")
	t.Setenv("GONUGET_REQUEST_TIMEOUT", "30s")
	t.Setenv("GONUGET_OUTPUT", "yaml")
	t.Setenv("GONUGET_LOG_LEVEL", "debug")

	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, 4, s.MaxParallelism)
	assert.Equal(t, 30*time.Second, s.RequestTimeout)
	assert.Equal(t, output.FormatYAML, s.Output)
	assert.Equal(t, observability.DebugLevel, s.LogLevel)
}

func TestLoadSettings_Flags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("max-parallelism", "2"))
	t.Cleanup(func() {
		_ = flags.Set("max-parallelism", "16")
		flags.Lookup("max-parallelism").Changed = false
	})

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, 2, s.MaxParallelism)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"log level":       {"GONUGET_LOG_LEVEL", "chatty"},
		"output":          {"GONUGET_OUTPUT", "xml"},
		"max parallelism": {"GONUGET_MAX_PARALLELISM", "0"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadSettings()
			assert.Error(t, err)
		})
	}
}

func TestExecuteContext_WritesMetricsWhenCommandFails(t *testing.T) {
	failure := errors.New("gather failed")
	cmd := &cobra.Command{
		Use:  "failing",
		RunE: func(*cobra.Command, []string) error { return failure },
	}
	AddCommand(cmd)
	t.Cleanup(func() { rootCmd.RemoveCommand(cmd) })

	var errBuf bytes.Buffer
	prevConsole := Console
	Console = output.NewConsole(&bytes.Buffer{}, &errBuf, output.VerbosityNormal)
	t.Cleanup(func() { Console = prevConsole })

	path := filepath.Join(t.TempDir(), "metrics.prom")
	rootCmd.SetArgs([]string{"failing", "--metrics-file", path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		flag := rootCmd.PersistentFlags().Lookup("metrics-file")
		_ = flag.Value.Set("")
		flag.Changed = false
	})

	err := ExecuteContext(context.Background())
	assert.ErrorIs(t, err, failure)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gonuget_")
}
