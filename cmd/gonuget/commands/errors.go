package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/willibrandon/gonuget-pm/core/resolver"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitUnresolvable = 3
	ExitSource       = 4
	ExitNotInstalled = 5
	ExitConflict     = 6
	ExitCanceled     = 130
)

// ErrNoSources reports that configuration and flags left no enabled source.
var ErrNoSources = errors.New("no package sources are enabled")

// UsageError reports invalid arguments or flag values.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	var (
		usage        *UsageError
		unresolvable *resolver.UnresolvablePackageError
		query        *resolver.SourceQueryError
		initErr      *resolver.SourceInitError
		notInstalled *resolver.PackageNotInstalledError
		conflict     *resolver.UninstallConflictError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.As(err, &usage), errors.Is(err, resolver.ErrInvalidContext):
		return ExitUsage
	case errors.As(err, &unresolvable):
		return ExitUnresolvable
	case errors.As(err, &query), errors.As(err, &initErr), errors.Is(err, ErrNoSources):
		return ExitSource
	case errors.As(err, &notInstalled):
		return ExitNotInstalled
	case errors.As(err, &conflict):
		return ExitConflict
	}
	return ExitFailure
}
