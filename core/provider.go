package core

import (
	"context"
	"strings"

	"github.com/willibrandon/gonuget-pm/protocol/v2"
	"github.com/willibrandon/gonuget-pm/protocol/v3"
)

// DefaultResourceProviders returns the local, v3 and v2 providers in
// detection order.
func DefaultResourceProviders() []ResourceProvider {
	return []ResourceProvider{LocalFolderProvider{}, V3Provider{}, V2Provider{}}
}

// LocalFolderProvider accepts file paths and file:// URLs.
type LocalFolderProvider struct{}

func (LocalFolderProvider) Name() string { return "local" }

func (LocalFolderProvider) TryCreate(_ context.Context, repo *SourceRepository) (DependencyInfoResource, bool, error) {
	src := repo.PackageSource()
	if !src.IsLocal() {
		return nil, false, nil
	}
	return NewLocalFolderResource(repo.Name(), src.LocalPath(), repo.Logger()), true, nil
}

// V3Provider accepts sources configured as protocol 3, URLs ending in
// index.json, and any source whose service index can be read.
type V3Provider struct{}

func (V3Provider) Name() string { return "v3" }

func (V3Provider) TryCreate(ctx context.Context, repo *SourceRepository) (DependencyInfoResource, bool, error) {
	src := repo.PackageSource()
	if src.IsLocal() || src.ProtocolVersion == 2 {
		return nil, false, nil
	}

	serviceIndex := v3.NewServiceIndexClient(repo.HTTPClient())
	explicit := src.ProtocolVersion == 3 || strings.HasSuffix(strings.ToLower(src.Source), "index.json")
	if !explicit {
		if _, err := serviceIndex.GetServiceIndex(ctx, src.Source); err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			repo.Logger().DebugContext(ctx, "No v3 service index at {Source}: {Error}", src.Source, err)
			return nil, false, nil
		}
	}

	registration := v3.NewRegistrationClient(repo.HTTPClient(), serviceIndex)
	return NewRegistrationResourceV3(repo.Name(), src.Source, registration), true, nil
}

// V2Provider accepts sources configured as protocol 2 and any source serving
// an OData service document.
type V2Provider struct{}

func (V2Provider) Name() string { return "v2" }

func (V2Provider) TryCreate(ctx context.Context, repo *SourceRepository) (DependencyInfoResource, bool, error) {
	src := repo.PackageSource()
	if src.IsLocal() || src.ProtocolVersion == 3 {
		return nil, false, nil
	}

	feed := v2.NewFeedClient(repo.HTTPClient())
	if src.ProtocolVersion != 2 {
		ok, err := feed.DetectV2Feed(ctx, src.Source)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	return NewODataResourceV2(repo.Name(), src.Source, feed), true, nil
}
