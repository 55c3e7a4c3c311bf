package output

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/willibrandon/gonuget-pm/core"
)

// GatherOutput is the result of the gather command.
type GatherOutput struct {
	SchemaVersion string            `json:"schemaVersion" yaml:"schemaVersion"`
	Targets       []string          `json:"targets" yaml:"targets"`
	Framework     string            `json:"framework" yaml:"framework"`
	Packages      []GatheredPackage `json:"packages" yaml:"packages"`
	ElapsedMs     int64             `json:"elapsedMs" yaml:"elapsedMs"`
}

// GatheredPackage groups the gathered versions of one id.
type GatheredPackage struct {
	ID       string            `json:"id" yaml:"id"`
	Versions []GatheredVersion `json:"versions" yaml:"versions"`
}

// GatheredVersion is one candidate and where it came from.
type GatheredVersion struct {
	Version      string   `json:"version" yaml:"version"`
	Source       string   `json:"source" yaml:"source"`
	Listed       bool     `json:"listed" yaml:"listed"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// NewGatherOutput groups infos by id, ids ordered case-insensitively and
// versions ascending.
func NewGatherOutput(targets []string, framework string, infos []*core.SourcePackageDependencyInfo, start time.Time) *GatherOutput {
	sorted := slices.Clone(infos)
	slices.SortFunc(sorted, func(a, b *core.SourcePackageDependencyInfo) int {
		return a.Compare(b.PackageIdentity)
	})

	out := &GatherOutput{
		SchemaVersion: CurrentSchemaVersion,
		Targets:       targets,
		Framework:     framework,
		Packages:      []GatheredPackage{},
		ElapsedMs:     MeasureElapsed(start),
	}
	for _, info := range sorted {
		n := len(out.Packages)
		if n == 0 || !strings.EqualFold(out.Packages[n-1].ID, info.ID) {
			out.Packages = append(out.Packages, GatheredPackage{ID: info.ID})
			n++
		}
		v := GatheredVersion{
			Version: info.Version.ToNormalizedString(),
			Source:  info.Source,
			Listed:  info.Listed,
		}
		for _, d := range info.Dependencies {
			v.Dependencies = append(v.Dependencies, d.String())
		}
		out.Packages[n-1].Versions = append(out.Packages[n-1].Versions, v)
	}
	return out
}

// WriteText prints one block per id.
func (o *GatherOutput) WriteText(w io.Writer) error {
	count := 0
	for _, p := range o.Packages {
		count += len(p.Versions)
	}
	if _, err := fmt.Fprintf(w, "Gathered %d package(s) for %s (%s)\n", count, strings.Join(o.Targets, ", "), o.Framework); err != nil {
		return err
	}

	for _, p := range o.Packages {
		if _, err := ColorHeader.Fprintln(w, p.ID); err != nil {
			return err
		}
		for _, v := range p.Versions {
			line := fmt.Sprintf("  %s  %s", v.Version, ColorMuted.Sprint(v.Source))
			if !v.Listed {
				line += " (unlisted)"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			for _, d := range v.Dependencies {
				if _, err := fmt.Fprintf(w, "    -> %s\n", d); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// UninstallOutput is the result of the uninstall command.
type UninstallOutput struct {
	SchemaVersion string   `json:"schemaVersion" yaml:"schemaVersion"`
	Target        string   `json:"target" yaml:"target"`
	Packages      []string `json:"packages" yaml:"packages"`
	ElapsedMs     int64    `json:"elapsedMs" yaml:"elapsedMs"`
}

// NewUninstallOutput lists plan in removal order.
func NewUninstallOutput(target core.PackageIdentity, plan []core.PackageIdentity, start time.Time) *UninstallOutput {
	out := &UninstallOutput{
		SchemaVersion: CurrentSchemaVersion,
		Target:        target.String(),
		Packages:      make([]string, len(plan)),
		ElapsedMs:     MeasureElapsed(start),
	}
	for i, p := range plan {
		out.Packages[i] = p.String()
	}
	return out
}

// WriteText prints the numbered removal order.
func (o *UninstallOutput) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Packages to uninstall for '%s', in order:\n", o.Target); err != nil {
		return err
	}
	for i, p := range o.Packages {
		if _, err := fmt.Fprintf(w, "  %d. %s\n", i+1, p); err != nil {
			return err
		}
	}
	return nil
}
