package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/cli"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/output"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/project"
	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/core/resolver"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// GatherOptions holds the configuration for the gather command.
type GatherOptions struct {
	IDs                 []string
	Framework           string
	Sources             []string
	PackagesConfig      string
	PackagesDir         string
	DependencyBehavior  string
	AllowDowngrades     bool
	UpdateAll           bool
	IgnoreFailedSources bool
}

// NewGatherCommand creates the gather command.
func NewGatherCommand(console *output.Console) *cobra.Command {
	opts := &GatherOptions{}

	cmd := &cobra.Command{
		Use:   "gather [<ID>@<VERSION>...]",
		Short: "Gather the dependency information an install needs",
		Long: `Collects every package version that may take part in resolving the given
targets: the targets themselves, their dependencies at any version, and the
installed packages and their dependencies.

Targets given as <ID>@<VERSION> must exist at that version in the selected
sources. Targets given with --id are gathered at every available version.

Examples:
  gonuget gather Newtonsoft.Json@13.0.3 --framework net8.0
  gonuget gather --id Serilog --source nuget.org -o json
  gonuget gather jQuery.Validation@1.19.5 --packages-config packages.config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGather(cmd.Context(), console, args, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.IDs, "id", nil, "Package id to gather at every version")
	cmd.Flags().StringVarP(&opts.Framework, "framework", "f", "", "Target framework (defaults to packages.config, then any)")
	cmd.Flags().StringSliceVarP(&opts.Sources, "source", "s", nil, "Package source name, URL or folder to use instead of the configured sources")
	cmd.Flags().StringVar(&opts.PackagesConfig, "packages-config", "", "packages.config listing the installed packages")
	cmd.Flags().StringVar(&opts.PackagesDir, "packages-dir", "", "Folder holding the installed packages")
	cmd.Flags().StringVar(&opts.DependencyBehavior, "dependency-behavior", "lowest", "Dependency behavior (lowest, highestpatch, highestminor, highest, ignore)")
	cmd.Flags().BoolVar(&opts.AllowDowngrades, "allow-downgrades", false, "Keep versions lower than the installed ones")
	cmd.Flags().BoolVar(&opts.UpdateAll, "update-all", false, "Tolerate targets that no source has")
	cmd.Flags().BoolVar(&opts.IgnoreFailedSources, "ignore-failed-sources", false, "Skip failing sources for dependencies and installed packages")

	return cmd
}

func runGather(ctx context.Context, console *output.Console, args []string, opts *GatherOptions) error {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := cli.LoadSettings()
	if err != nil {
		return &UsageError{Err: err}
	}
	logger := s.NewLogger()

	targets, ids, err := parseTargets(args)
	if err != nil {
		return err
	}
	ids = append(ids, opts.IDs...)
	if len(targets) == 0 && len(ids) == 0 {
		return usageErrorf("specify at least one package as <ID>@<VERSION> or with --id")
	}

	behavior, err := resolver.ParseDependencyBehavior(opts.DependencyBehavior)
	if err != nil {
		return &UsageError{Err: err}
	}

	var (
		installed []core.PackageIdentity
		framework *frameworks.NuGetFramework
	)
	packagesDir := opts.PackagesDir
	if opts.PackagesConfig != "" {
		pc, err := project.LoadPackagesConfig(opts.PackagesConfig)
		if err != nil {
			return err
		}
		if installed, err = pc.Identities(); err != nil {
			return err
		}
		if framework, err = pc.TargetFramework(); err != nil {
			return err
		}
		if packagesDir == "" {
			packagesDir = pc.DefaultPackagesDirectory()
		}
	}
	if opts.Framework != "" {
		if framework, err = frameworks.Parse(opts.Framework); err != nil {
			return &UsageError{Err: err}
		}
	}
	if framework == nil {
		framework = frameworks.AnyFramework
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}
	set, err := loadSourceSet(workDir, opts.Sources, s, logger)
	if err != nil {
		return err
	}

	resCtx := resolver.NewResolutionContext()
	resCtx.DependencyBehavior = behavior
	resCtx.SourceCacheContext.NoCache = s.NoCache

	gc := &resolver.GatherContext{
		PrimaryTargets:              targets,
		PrimaryTargetIDs:            ids,
		InstalledPackages:           installed,
		TargetFramework:             framework,
		PrimarySources:              set.repos,
		AllSources:                  set.repos,
		ResolutionContext:           resCtx,
		AllowDowngrades:             opts.AllowDowngrades,
		IsUpdateAll:                 opts.UpdateAll,
		PackageSourceMapping:        set.mapping,
		IgnoreSecondarySourceErrors: opts.IgnoreFailedSources,
		MaxDegreeOfParallelism:      s.MaxParallelism,
		RequestTimeout:              s.RequestTimeout,
		Logger:                      logger,
	}
	if packagesDir != "" {
		if abs, err := filepath.Abs(packagesDir); err == nil {
			packagesDir = abs
		}
		gc.PackagesFolderSource = packagesFolderRepository(packagesDir, logger)
	}

	infos, err := resolver.Gather(ctx, gc)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(targets)+len(ids))
	for _, t := range targets {
		names = append(names, t.String())
	}
	names = append(names, ids...)

	return output.Write(console.Out(), s.Output, output.NewGatherOutput(names, framework.String(), infos, start))
}

// parseTargets splits arguments into exact targets (<ID>@<VERSION>) and bare
// ids.
func parseTargets(args []string) ([]core.PackageIdentity, []string, error) {
	var (
		targets []core.PackageIdentity
		ids     []string
	)
	for _, arg := range args {
		id, ver, found := strings.Cut(arg, "@")
		if !found {
			if strings.TrimSpace(arg) == "" {
				return nil, nil, usageErrorf("empty package id")
			}
			ids = append(ids, arg)
			continue
		}
		if ver == "" {
			return nil, nil, usageErrorf("package %q is missing a version after '@'", arg)
		}
		identity, err := core.NewPackageIdentity(id, ver)
		if err != nil {
			return nil, nil, &UsageError{Err: err}
		}
		targets = append(targets, identity)
	}
	return targets, ids, nil
}
