package commands

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/cli"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/output"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/project"
	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/core/resolver"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// UninstallOptions holds the configuration for the uninstall command.
type UninstallOptions struct {
	PackagesConfig     string
	PackagesDir        string
	Framework          string
	RemoveDependencies bool
	Force              bool
}

// NewUninstallCommand creates the uninstall command.
func NewUninstallCommand(console *output.Console) *cobra.Command {
	opts := &UninstallOptions{}

	cmd := &cobra.Command{
		Use:   "uninstall <ID>[@<VERSION>]",
		Short: "Plan the removal of an installed package",
		Long: `Prints the packages that removing <ID> takes with it, in the order they
must be removed. Nothing is modified.

The installed set comes from packages.config and the dependencies of each
installed package from its manifest in the packages folder.

Examples:
  gonuget uninstall jQuery.Validation
  gonuget uninstall jQuery.Validation --remove-dependencies
  gonuget uninstall jQuery@3.7.1 --force --packages-config src/App/packages.config`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd.Context(), console, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.PackagesConfig, "packages-config", project.PackagesConfigFileName, "packages.config listing the installed packages")
	cmd.Flags().StringVar(&opts.PackagesDir, "packages-dir", "", "Folder holding the installed packages (defaults to the solution packages folder)")
	cmd.Flags().StringVarP(&opts.Framework, "framework", "f", "", "Target framework used to select dependency groups (defaults to packages.config)")
	cmd.Flags().BoolVar(&opts.RemoveDependencies, "remove-dependencies", false, "Also remove dependencies nothing else needs")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Remove the package even if others depend on it")

	return cmd
}

func runUninstall(ctx context.Context, console *output.Console, arg string, opts *UninstallOptions) error {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := cli.LoadSettings()
	if err != nil {
		return &UsageError{Err: err}
	}
	logger := s.NewLogger()

	target, err := parseUninstallTarget(arg)
	if err != nil {
		return err
	}

	pc, err := project.LoadPackagesConfig(opts.PackagesConfig)
	if err != nil {
		return err
	}
	installed, err := pc.Identities()
	if err != nil {
		return err
	}

	framework, err := pc.TargetFramework()
	if err != nil {
		return err
	}
	if opts.Framework != "" {
		if framework, err = frameworks.Parse(opts.Framework); err != nil {
			return &UsageError{Err: err}
		}
	}
	if framework == nil {
		framework = frameworks.AnyFramework
	}

	packagesDir := opts.PackagesDir
	if packagesDir == "" {
		packagesDir = pc.DefaultPackagesDirectory()
	}
	if abs, err := filepath.Abs(packagesDir); err == nil {
		packagesDir = abs
	}

	folder := core.NewLocalFolderResource("packages folder", packagesDir, logger)
	infos := make([]*core.PackageDependencyInfo, 0, len(installed))
	for _, p := range installed {
		info, err := folder.ResolvePackage(ctx, p, framework, nil)
		if err != nil {
			return err
		}
		if info == nil {
			console.Warning("'%s' is not in %s; its dependencies are treated as empty", p, packagesDir)
			continue
		}
		infos = append(infos, &info.PackageDependencyInfo)
	}

	plan, err := resolver.ResolveUninstall(ctx, target, infos, installed, resolver.UninstallationContext{
		RemoveDependencies: opts.RemoveDependencies,
		ForceRemove:        opts.Force,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	return output.Write(console.Out(), s.Output, output.NewUninstallOutput(target, plan, start))
}

func parseUninstallTarget(arg string) (core.PackageIdentity, error) {
	targets, ids, err := parseTargets([]string{arg})
	if err != nil {
		return core.PackageIdentity{}, err
	}
	if len(targets) == 1 {
		return targets[0], nil
	}
	return core.PackageIdentity{ID: ids[0]}, nil
}
