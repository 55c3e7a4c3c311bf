package v3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	nugethttp "github.com/willibrandon/gonuget-pm/http"
)

// maxPageFetches bounds concurrent page downloads for one package.
const maxPageFetches = 8

// RegistrationClient reads registration indexes.
type RegistrationClient struct {
	httpClient   *nugethttp.Client
	serviceIndex *ServiceIndexClient
}

// NewRegistrationClient creates a registration client.
func NewRegistrationClient(httpClient *nugethttp.Client, serviceIndex *ServiceIndexClient) *RegistrationClient {
	return &RegistrationClient{httpClient: httpClient, serviceIndex: serviceIndex}
}

// RegistrationBaseURL resolves the registration resource of sourceURL.
func (c *RegistrationClient) RegistrationBaseURL(ctx context.Context, sourceURL string) (string, error) {
	baseURL, err := c.serviceIndex.GetResourceURL(ctx, sourceURL, RegistrationResourceTypes...)
	if err != nil {
		return "", fmt.Errorf("get registration URL: %w", err)
	}
	return baseURL, nil
}

// GetLeaves returns every version leaf of packageID, fetching non-inlined
// pages concurrently. A package the feed does not know yields no leaves and
// no error.
func (c *RegistrationClient) GetLeaves(ctx context.Context, sourceURL, packageID string) ([]RegistrationLeaf, error) {
	baseURL, err := c.RegistrationBaseURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	indexURL := strings.TrimSuffix(baseURL, "/") + "/" + strings.ToLower(packageID) + "/index.json"
	var index RegistrationIndex
	if err := c.getJSON(ctx, indexURL, &index); err != nil {
		if errors.Is(err, nugethttp.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch registration %s: %w", packageID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPageFetches)
	for i := range index.Items {
		page := &index.Items[i]
		if len(page.Items) > 0 || page.ID == "" {
			continue
		}
		g.Go(func() error {
			var fetched RegistrationPage
			if err := c.getJSON(gctx, page.ID, &fetched); err != nil {
				return fmt.Errorf("fetch registration page %s: %w", page.ID, err)
			}
			page.Items = fetched.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var leaves []RegistrationLeaf
	for _, page := range index.Items {
		for _, leaf := range page.Items {
			if leaf.CatalogEntry != nil {
				leaves = append(leaves, leaf)
			}
		}
	}
	return leaves, nil
}

func (c *RegistrationClient) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.httpClient.GetBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
