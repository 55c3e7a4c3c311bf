// Package resolver gathers the dependency information an install or update
// needs from a set of package sources, and plans safe package removal.
package resolver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/frameworks"
	"github.com/willibrandon/gonuget-pm/observability"
)

const (
	// DefaultMaxDegreeOfParallelism bounds concurrent source queries per pass.
	DefaultMaxDegreeOfParallelism = 16

	// DefaultRequestTimeout bounds a single source query.
	DefaultRequestTimeout = 5 * time.Minute
)

// ErrInvalidContext reports a GatherContext that cannot be gathered.
var ErrInvalidContext = errors.New("invalid gather context")

// DependencyBehavior selects how dependencies are picked when resolving.
// The gatherer only distinguishes Ignore from the rest.
type DependencyBehavior int

const (
	DependencyBehaviorLowest DependencyBehavior = iota
	DependencyBehaviorIgnore
	DependencyBehaviorHighestPatch
	DependencyBehaviorHighestMinor
	DependencyBehaviorHighest
)

var dependencyBehaviorNames = map[DependencyBehavior]string{
	DependencyBehaviorLowest:       "lowest",
	DependencyBehaviorIgnore:       "ignore",
	DependencyBehaviorHighestPatch: "highestpatch",
	DependencyBehaviorHighestMinor: "highestminor",
	DependencyBehaviorHighest:      "highest",
}

func (b DependencyBehavior) String() string {
	if name, ok := dependencyBehaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("DependencyBehavior(%d)", int(b))
}

// ParseDependencyBehavior accepts the names printed by String, ignoring case.
func ParseDependencyBehavior(s string) (DependencyBehavior, error) {
	for b, name := range dependencyBehaviorNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown dependency behavior %q", s)
}

// ResolutionContext carries the caller's resolution preferences. Gather calls
// that share a context share its GatherCache.
type ResolutionContext struct {
	DependencyBehavior DependencyBehavior

	// AllowDowngrades has the same effect as GatherContext.AllowDowngrades;
	// either one enables it.
	AllowDowngrades bool

	// GatherCache may be nil to query sources on every call.
	GatherCache        *GatherCache
	SourceCacheContext *cache.SourceCacheContext
}

// NewResolutionContext returns lowest-version behavior with a fresh gather
// cache and source cache context.
func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{
		DependencyBehavior: DependencyBehaviorLowest,
		GatherCache:        NewGatherCache(),
		SourceCacheContext: cache.NewSourceCacheContext(),
	}
}

// ConcurrencyTracker observes source queries as they start and finish.
type ConcurrencyTracker interface {
	Enter()
	Exit()
}

// GatherContext is the input to Gather.
type GatherContext struct {
	// PrimaryTargets must be found, at exactly these versions, in PrimarySources.
	PrimaryTargets []core.PackageIdentity

	// PrimaryTargetIDs are gathered at every version from PrimarySources.
	PrimaryTargetIDs []string

	InstalledPackages []core.PackageIdentity
	TargetFramework   *frameworks.NuGetFramework

	PrimarySources []*core.SourceRepository
	AllSources     []*core.SourceRepository

	// PackagesFolderSource holds the installed packages. It is consulted
	// before any remote source for installed identities and may be nil.
	PackagesFolderSource *core.SourceRepository

	ResolutionContext *ResolutionContext

	// AllowDowngrades keeps versions lower than the installed one when
	// expanding the closure. ResolutionContext.AllowDowngrades also enables it.
	AllowDowngrades bool

	// IsUpdateAll tolerates primary targets that no primary source has.
	IsUpdateAll bool

	PackageSourceMapping *PackageSourceMapping

	// IgnoreSecondarySourceErrors logs and skips failed best-effort queries
	// instead of failing the gather. Primary target failures always fail it.
	IgnoreSecondarySourceErrors bool

	MaxDegreeOfParallelism int
	RequestTimeout         time.Duration

	Logger  observability.Logger
	Tracker ConcurrencyTracker
}

func (gc *GatherContext) validate() error {
	if gc == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidContext)
	}
	if len(gc.PrimaryTargets) == 0 && len(gc.PrimaryTargetIDs) == 0 {
		return fmt.Errorf("%w: no primary targets", ErrInvalidContext)
	}
	if len(gc.PrimarySources) == 0 {
		return fmt.Errorf("%w: no primary sources", ErrInvalidContext)
	}
	for _, t := range gc.PrimaryTargets {
		if !t.HasVersion() {
			return fmt.Errorf("%w: primary target %s has no version", ErrInvalidContext, t.ID)
		}
	}
	return nil
}

func (gc *GatherContext) maxDOP() int {
	if gc.MaxDegreeOfParallelism <= 0 {
		return DefaultMaxDegreeOfParallelism
	}
	return gc.MaxDegreeOfParallelism
}

func (gc *GatherContext) requestTimeout() time.Duration {
	if gc.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return gc.RequestTimeout
}
