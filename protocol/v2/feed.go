package v2

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"

	nugethttp "github.com/willibrandon/gonuget-pm/http"
)

// maxFeedPages stops runaway next-link chains.
const maxFeedPages = 100

// FeedClient reads a v2 feed.
type FeedClient struct {
	httpClient *nugethttp.Client
}

// NewFeedClient creates a v2 feed client.
func NewFeedClient(httpClient *nugethttp.Client) *FeedClient {
	return &FeedClient{httpClient: httpClient}
}

func baseURL(feedURL string) string {
	return strings.TrimSuffix(feedURL, "/") + "/"
}

// DetectV2Feed reports whether feedURL serves an OData service document with
// a Packages collection. Transport failures are returned as errors.
func (c *FeedClient) DetectV2Feed(ctx context.Context, feedURL string) (bool, error) {
	service, err := c.GetServiceDocument(ctx, feedURL)
	if err != nil {
		var statusErr *nugethttp.StatusError
		if errors.Is(err, nugethttp.ErrNotFound) || errors.As(err, &statusErr) || errors.Is(err, errNotServiceDocument) {
			return false, nil
		}
		return false, err
	}

	for _, collection := range service.Workspace.Collections {
		if strings.EqualFold(collection.Href, "Packages") {
			return true, nil
		}
	}
	return false, nil
}

var errNotServiceDocument = errors.New("not an OData service document")

// GetServiceDocument fetches the service document at the feed root.
func (c *FeedClient) GetServiceDocument(ctx context.Context, feedURL string) (*Service, error) {
	body, err := c.httpClient.GetBytes(ctx, baseURL(feedURL))
	if err != nil {
		return nil, fmt.Errorf("fetch service document: %w", err)
	}

	var service Service
	if err := xml.Unmarshal(body, &service); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotServiceDocument, err)
	}
	return &service, nil
}

// FindPackagesByID returns every entry for packageID, following next links.
// An unknown id yields no entries.
func (c *FeedClient) FindPackagesByID(ctx context.Context, feedURL, packageID string) ([]Entry, error) {
	next := fmt.Sprintf("%sFindPackagesById()?id='%s'&semVerLevel=2.0.0", baseURL(feedURL), url.QueryEscape(packageID))

	var entries []Entry
	for page := 0; next != "" && page < maxFeedPages; page++ {
		body, err := c.httpClient.GetBytes(ctx, next)
		if errors.Is(err, nugethttp.ErrNotFound) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find packages %s: %w", packageID, err)
		}

		var feed Feed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return nil, fmt.Errorf("decode feed for %s: %w", packageID, err)
		}
		entries = append(entries, feed.Entries...)
		next = feed.NextLink()
	}
	return entries, nil
}

// GetPackage returns the entry for one version, or nil when the feed does not
// have it.
func (c *FeedClient) GetPackage(ctx context.Context, feedURL, packageID, version string) (*Entry, error) {
	entryURL := fmt.Sprintf("%sPackages(Id='%s',Version='%s')",
		baseURL(feedURL), url.PathEscape(packageID), url.PathEscape(version))

	body, err := c.httpClient.GetBytes(ctx, entryURL)
	if errors.Is(err, nugethttp.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get package %s %s: %w", packageID, version, err)
	}

	var entry Entry
	if err := xml.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("decode entry for %s %s: %w", packageID, version, err)
	}
	return &entry, nil
}
