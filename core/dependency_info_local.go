package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/frameworks"
	"github.com/willibrandon/gonuget-pm/observability"
	"github.com/willibrandon/gonuget-pm/packaging"
	"github.com/willibrandon/gonuget-pm/version"
)

// LocalFolderResource reads packages from a folder in any of three layouts:
//
//	v3 hierarchical   {root}/{id}/{version}/{id}.nuspec or .nupkg
//	packages folder   {root}/{id}.{version}/{id}.{version}.nupkg or .nuspec
//	v2 flat           {root}/{id}.{version}.nupkg
//
// Packages whose manifest cannot be read are skipped with a warning.
type LocalFolderResource struct {
	name   string
	root   string
	logger observability.Logger
}

// NewLocalFolderResource creates a resource for root, attributing results to
// name.
func NewLocalFolderResource(name, root string, logger observability.Logger) *LocalFolderResource {
	return &LocalFolderResource{name: name, root: root, logger: observability.OrNull(logger)}
}

func (r *LocalFolderResource) ResolvePackage(ctx context.Context, identity PackageIdentity, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) (*SourcePackageDependencyInfo, error) {
	infos, err := r.ResolvePackages(ctx, identity.ID, framework, cacheCtx)
	if err != nil {
		return nil, err
	}
	return findVersion(infos, identity), nil
}

// ResolvePackages scans all three layouts. The first manifest found for a
// version wins. A missing root holds no packages.
func (r *LocalFolderResource) ResolvePackages(ctx context.Context, id string, framework *frameworks.NuGetFramework, _ *cache.SourceCacheContext) ([]*SourcePackageDependencyInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifests := r.hierarchical(id)

	entries, err := os.ReadDir(r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir() && matchIDVersion(name, id):
			if m := manifestIn(filepath.Join(r.root, name)); m != "" {
				manifests = append(manifests, m)
			}
		case !e.IsDir() && strings.EqualFold(filepath.Ext(name), ".nupkg") && matchIDVersion(strings.TrimSuffix(name, filepath.Ext(name)), id):
			manifests = append(manifests, filepath.Join(r.root, name))
		}
	}

	seen := make(map[string]bool)
	var infos []*SourcePackageDependencyInfo
	for _, path := range manifests {
		info, err := r.read(path, framework)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable package {Path}: {Error}", path, err)
			continue
		}
		if !strings.EqualFold(info.ID, id) || seen[info.Key()] {
			continue
		}
		seen[info.Key()] = true
		infos = append(infos, info)
	}
	return infos, nil
}

func (r *LocalFolderResource) hierarchical(id string) []string {
	dir := filepath.Join(r.root, strings.ToLower(id))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := version.Parse(e.Name()); err != nil {
			continue
		}
		if m := manifestIn(filepath.Join(dir, e.Name())); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (r *LocalFolderResource) read(path string, framework *frameworks.NuGetFramework) (*SourcePackageDependencyInfo, error) {
	var (
		nuspec *packaging.Nuspec
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".nuspec") {
		nuspec, err = packaging.ReadNuspecFile(path)
	} else {
		nuspec, err = packaging.ReadNuspecFromPackage(path)
	}
	if err != nil {
		return nil, err
	}

	var groups []DependencyGroup
	for _, g := range nuspec.DependencyGroups() {
		group := DependencyGroup{TargetFramework: g.TargetFramework}
		for _, d := range g.Dependencies {
			dep, err := NewPackageDependency(d.ID, d.Version)
			if err != nil {
				r.logger.Debug("Ignoring dependency {DependencyID} of {Path}: {Error}", d.ID, path, err)
				continue
			}
			group.Dependencies = append(group.Dependencies, dep)
		}
		groups = append(groups, group)
	}

	identity := PackageIdentity{ID: nuspec.Metadata.ID, Version: nuspec.Version()}
	info := NewSourcePackageDependencyInfo(identity, r.name, SelectDependencies(groups, framework)...)
	info.DownloadURI = path
	return info, nil
}

// matchIDVersion reports whether name is "{id}.{version}".
func matchIDVersion(name, id string) bool {
	if len(name) <= len(id)+1 || !strings.EqualFold(name[:len(id)], id) || name[len(id)] != '.' {
		return false
	}
	_, err := version.Parse(name[len(id)+1:])
	return err == nil
}

// manifestIn returns the .nuspec in dir, or its .nupkg when there is none.
func manifestIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var nupkg string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".nuspec":
			return filepath.Join(dir, e.Name())
		case ".nupkg":
			if nupkg == "" {
				nupkg = filepath.Join(dir, e.Name())
			}
		}
	}
	return nupkg
}
