package resolver

import (
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-pm/core"
)

// UnresolvablePackageError reports a primary target that no primary source
// has.
type UnresolvablePackageError struct {
	// Package is "id version", or the bare id for targets given by id.
	Package        string
	PrimarySources []string
}

func (e *UnresolvablePackageError) Error() string {
	return fmt.Sprintf("Package '%s' is not found in the following primary source(s): '%s'. "+
		"Please verify all your online package sources are available (OR) package id, version are specified correctly.",
		e.Package, strings.Join(e.PrimarySources, ","))
}

// SourceQueryError reports a failed or timed out query against one source.
type SourceQueryError struct {
	PackageID string
	Source    string
	Err       error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("Unable to gather package '%s' from source '%s': %v", e.PackageID, e.Source, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// SourceInitError reports a source whose dependency info resource could not
// be created.
type SourceInitError struct {
	Source string
	Err    error
}

func (e *SourceInitError) Error() string {
	return fmt.Sprintf("Unable to load the dependency information from source '%s': %v", e.Source, e.Err)
}

func (e *SourceInitError) Unwrap() error { return e.Err }

// PackageNotInstalledError reports an uninstall target that is not installed.
type PackageNotInstalledError struct {
	Package core.PackageIdentity
}

func (e *PackageNotInstalledError) Error() string {
	return fmt.Sprintf("Package '%s' is not installed", e.Package)
}

// UninstallConflictError reports installed packages outside the removal set
// that still depend on the target.
type UninstallConflictError struct {
	Package    core.PackageIdentity
	Dependents []core.PackageIdentity
}

func (e *UninstallConflictError) Error() string {
	names := make([]string, len(e.Dependents))
	for i, d := range e.Dependents {
		names[i] = "'" + d.String() + "'"
	}
	verb := "depends"
	if len(names) > 1 {
		verb = "depend"
	}
	return fmt.Sprintf("Unable to uninstall '%s' because %s %s on it.", e.Package, strings.Join(names, ", "), verb)
}
