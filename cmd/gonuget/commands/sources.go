package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/willibrandon/gonuget-pm/cmd/gonuget/cli"
	"github.com/willibrandon/gonuget-pm/cmd/gonuget/config"
	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/core/resolver"
	nugethttp "github.com/willibrandon/gonuget-pm/http"
	"github.com/willibrandon/gonuget-pm/observability"
	"github.com/willibrandon/gonuget-pm/resilience"
)

// sourceSet is the repositories one command talks to.
type sourceSet struct {
	config     *config.NuGetConfig
	configPath string
	repos      []*core.SourceRepository
	mapping    *resolver.PackageSourceMapping
}

// loadSourceSet reads NuGet.config from workDir upward (or settings'
// configfile) and builds one repository per enabled source. When requested
// is non-empty, only those sources are used; each entry is a configured
// source name or a URL or folder path.
func loadSourceSet(workDir string, requested []string, s *cli.Settings, logger observability.Logger) (*sourceSet, error) {
	cfg, path, err := config.Load(workDir, s.ConfigFile)
	if err != nil {
		return nil, err
	}

	sources, err := selectSources(cfg, path, requested, workDir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	client := newHTTPClient(s, logger)
	set := &sourceSet{config: cfg, configPath: path}
	for _, src := range sources {
		set.repos = append(set.repos, core.NewSourceRepository(src,
			core.WithHTTPClient(client),
			core.WithRepositoryLogger(logger)))
	}

	names, patterns := cfg.GetPackageSourceMapping()
	set.mapping = resolver.NewPackageSourceMapping(names, patterns)
	return set, nil
}

func selectSources(cfg *config.NuGetConfig, configPath string, requested []string, workDir string) ([]core.PackageSource, error) {
	enabled := cfg.GetEnabledPackageSources()
	if len(requested) == 0 {
		out := make([]core.PackageSource, 0, len(enabled))
		for _, src := range enabled {
			out = append(out, toPackageSource(cfg, configPath, src))
		}
		return out, nil
	}

	var out []core.PackageSource
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if configured, ok := findSource(cfg, r); ok {
			out = append(out, toPackageSource(cfg, configPath, configured))
			continue
		}
		if !isURL(r) && !filepath.IsAbs(r) {
			if _, err := os.Stat(filepath.Join(workDir, r)); err != nil {
				return nil, usageErrorf("source %q is neither a configured source nor an existing folder", r)
			}
			r = filepath.Join(workDir, r)
		}
		out = append(out, core.PackageSource{Name: r, Source: r})
	}
	return out, nil
}

func findSource(cfg *config.NuGetConfig, name string) (config.PackageSource, bool) {
	if cfg.PackageSources == nil {
		return config.PackageSource{}, false
	}
	for _, src := range cfg.PackageSources.Add {
		if strings.EqualFold(src.Key, name) {
			return src, true
		}
	}
	return config.PackageSource{}, false
}

// toPackageSource resolves relative folder sources against the directory of
// the config file that declares them.
func toPackageSource(cfg *config.NuGetConfig, configPath string, src config.PackageSource) core.PackageSource {
	ps := core.PackageSource{
		Name:            src.Key,
		Source:          src.Value,
		ProtocolVersion: src.Protocol(),
	}
	if ps.IsLocal() && !isURL(ps.Source) && !filepath.IsAbs(ps.Source) && configPath != "" {
		ps.Source = filepath.Join(filepath.Dir(configPath), ps.Source)
	}
	if creds, ok := cfg.GetCredentials(src.Key); ok {
		ps.Credentials = &core.PackageSourceCredentials{Username: creds.Username, Password: creds.Password}
	}
	return ps
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "file://")
}

// newHTTPClient shares one connection pool, breaker set and limiter across
// every source of a command.
func newHTTPClient(s *cli.Settings, logger observability.Logger) *nugethttp.Client {
	opts := []nugethttp.Option{
		nugethttp.WithLogger(logger),
		nugethttp.WithHTTP3(s.HTTP3),
		nugethttp.WithCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		nugethttp.WithRateLimiter(resilience.DefaultTokenBucketConfig()),
	}
	if s.NoCache {
		opts = append(opts, nugethttp.WithResponseCache(nil))
	}
	return nugethttp.NewClientWithOptions(opts...)
}

// packagesFolderRepository wraps a local packages folder.
func packagesFolderRepository(dir string, logger observability.Logger) *core.SourceRepository {
	return core.NewSourceRepository(core.PackageSource{Name: "packages folder", Source: dir},
		core.WithRepositoryLogger(logger))
}
