package v3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nugethttp "github.com/willibrandon/gonuget-pm/http"
	"github.com/willibrandon/gonuget-pm/observability"
)

// ErrResourceNotFound means the service index lacks every requested type.
var ErrResourceNotFound = errors.New("resource type not found in service index")

// ServiceIndexClient fetches and caches service indexes.
type ServiceIndexClient struct {
	httpClient *nugethttp.Client

	mu    sync.RWMutex
	cache map[string]cachedServiceIndex
}

type cachedServiceIndex struct {
	index     *ServiceIndex
	expiresAt time.Time
}

// NewServiceIndexClient creates a service index client.
func NewServiceIndexClient(httpClient *nugethttp.Client) *ServiceIndexClient {
	return &ServiceIndexClient{
		httpClient: httpClient,
		cache:      make(map[string]cachedServiceIndex),
	}
}

// IndexURL returns the index.json URL for a source. Sources are normally
// configured with the index URL itself; a bare base URL gets /index.json.
func IndexURL(sourceURL string) string {
	if strings.HasSuffix(strings.ToLower(sourceURL), ".json") {
		return sourceURL
	}
	return strings.TrimSuffix(sourceURL, "/") + "/index.json"
}

// GetServiceIndex returns the service index for sourceURL, cached for
// ServiceIndexCacheTTL.
func (c *ServiceIndexClient) GetServiceIndex(ctx context.Context, sourceURL string) (*ServiceIndex, error) {
	indexURL := IndexURL(sourceURL)

	c.mu.RLock()
	cached, ok := c.cache[indexURL]
	c.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.index, nil
	}

	ctx, span := observability.StartServiceIndexFetchSpan(ctx, indexURL)
	index, err := c.fetch(ctx, indexURL)
	observability.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[indexURL] = cachedServiceIndex{index: index, expiresAt: time.Now().Add(ServiceIndexCacheTTL)}
	c.mu.Unlock()
	return index, nil
}

func (c *ServiceIndexClient) fetch(ctx context.Context, indexURL string) (*ServiceIndex, error) {
	body, err := c.httpClient.GetBytes(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch service index: %w", err)
	}

	var index ServiceIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decode service index: %w", err)
	}
	if !strings.HasPrefix(index.Version, "3.") {
		return nil, fmt.Errorf("service index %s has unsupported version %q", indexURL, index.Version)
	}
	return &index, nil
}

// GetResourceURL returns the URL of the first resource matching the earliest
// type in resourceTypes. Types match with or without a version suffix, so
// "RegistrationsBaseUrl" matches "RegistrationsBaseUrl/Versioned".
func (c *ServiceIndexClient) GetResourceURL(ctx context.Context, sourceURL string, resourceTypes ...string) (string, error) {
	index, err := c.GetServiceIndex(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	for _, want := range resourceTypes {
		for _, resource := range index.Resources {
			if resource.Type == want {
				return resource.ID, nil
			}
		}
	}
	// unversioned requests also accept versioned entries
	for _, want := range resourceTypes {
		for _, resource := range index.Resources {
			if strings.HasPrefix(resource.Type, want+"/") {
				return resource.ID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrResourceNotFound, strings.Join(resourceTypes, ", "))
}

// ClearCache drops cached indexes.
func (c *ServiceIndexClient) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]cachedServiceIndex)
	c.mu.Unlock()
}
