package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-pm/auth"
	nugethttp "github.com/willibrandon/gonuget-pm/http"
	"github.com/willibrandon/gonuget-pm/observability"
)

// ErrUnknownProtocol is returned when no provider accepts a source.
var ErrUnknownProtocol = errors.New("unable to detect protocol version")

// PackageSource identifies a feed: a URL or a local folder.
type PackageSource struct {
	Name   string
	Source string

	// ProtocolVersion is 2 or 3 when configured; 0 means detect.
	ProtocolVersion int

	Credentials *PackageSourceCredentials
}

// PackageSourceCredentials authenticate requests to a remote source.
type PackageSourceCredentials struct {
	Username string
	Password string
	APIKey   string
}

// IsLocal reports whether the source is a file path or file:// URL.
func (s PackageSource) IsLocal() bool {
	lower := strings.ToLower(s.Source)
	return !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")
}

// LocalPath returns the folder of a local source.
func (s PackageSource) LocalPath() string {
	if u, err := url.Parse(s.Source); err == nil && strings.EqualFold(u.Scheme, "file") {
		return filepath.FromSlash(u.Path)
	}
	return s.Source
}

func (s PackageSource) String() string {
	if s.Name == "" || s.Name == s.Source {
		return s.Source
	}
	return s.Name + " (" + s.Source + ")"
}

func (c *PackageSourceCredentials) authenticator() auth.Authenticator {
	if c == nil {
		return nil
	}
	var chain auth.Chain
	if c.Username != "" || c.Password != "" {
		chain = append(chain, auth.NewBasicAuthenticator(c.Username, c.Password))
	}
	if c.APIKey != "" {
		chain = append(chain, auth.NewAPIKeyAuthenticator(c.APIKey))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// SourceRepository is a package source plus the resource used to read it.
// The resource is created on first use by the first provider that accepts
// the source.
type SourceRepository struct {
	source     PackageSource
	httpClient *nugethttp.Client
	providers  []ResourceProvider
	logger     observability.Logger

	mu       sync.RWMutex
	resource DependencyInfoResource
}

// RepositoryOption configures a SourceRepository.
type RepositoryOption func(*SourceRepository)

// WithHTTPClient sets the client shared by remote resources.
func WithHTTPClient(c *nugethttp.Client) RepositoryOption {
	return func(r *SourceRepository) { r.httpClient = c }
}

// WithRepositoryLogger sets the logger.
func WithRepositoryLogger(logger observability.Logger) RepositoryOption {
	return func(r *SourceRepository) { r.logger = observability.OrNull(logger) }
}

// WithProviders replaces the default provider list.
func WithProviders(providers ...ResourceProvider) RepositoryOption {
	return func(r *SourceRepository) { r.providers = providers }
}

// WithResource fixes the resource and skips provider detection.
func WithResource(resource DependencyInfoResource) RepositoryOption {
	return func(r *SourceRepository) { r.resource = resource }
}

// NewSourceRepository creates a repository for source.
func NewSourceRepository(source PackageSource, opts ...RepositoryOption) *SourceRepository {
	r := &SourceRepository{
		source: source,
		logger: observability.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.httpClient == nil {
		r.httpClient = nugethttp.NewClient(nil)
	}
	if a := source.Credentials.authenticator(); a != nil {
		r.httpClient = r.httpClient.WithAuthenticator(a)
	}
	if r.providers == nil {
		r.providers = DefaultResourceProviders()
	}
	return r
}

// NewMemorySourceRepository returns a repository serving infos from memory.
func NewMemorySourceRepository(name string, infos ...*SourcePackageDependencyInfo) *SourceRepository {
	return NewSourceRepository(PackageSource{Name: name, Source: name}, WithResource(NewPackageListResource(infos...)))
}

func (r *SourceRepository) PackageSource() PackageSource { return r.source }

// Name returns the configured name, or the source when unnamed.
func (r *SourceRepository) Name() string {
	if r.source.Name != "" {
		return r.source.Name
	}
	return r.source.Source
}

func (r *SourceRepository) Source() string                { return r.source.Source }
func (r *SourceRepository) HTTPClient() *nugethttp.Client { return r.httpClient }
func (r *SourceRepository) Logger() observability.Logger  { return r.logger }

// GetDependencyInfoResource returns the resource, detecting the protocol on
// first call. A failed detection is not cached.
func (r *SourceRepository) GetDependencyInfoResource(ctx context.Context) (DependencyInfoResource, error) {
	r.mu.RLock()
	if r.resource != nil {
		resource := r.resource
		r.mu.RUnlock()
		return resource, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resource != nil {
		return r.resource, nil
	}

	for _, p := range r.providers {
		resource, ok, err := p.TryCreate(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("create %s resource for %s: %w", p.Name(), r.source, err)
		}
		if ok {
			r.logger.DebugContext(ctx, "Using {Provider} dependency info for {Source}", p.Name(), r.source.Source)
			r.resource = resource
			return resource, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrUnknownProtocol, r.source)
}
