package v2

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nugethttp "github.com/willibrandon/gonuget-pm/http"
)

const serviceDocument = `<?xml version="1.0" encoding="utf-8"?>
<service xml:base="http://feed/api/v2/" xmlns="http://www.w3.org/2007/app" xmlns:atom="http://www.w3.org/2005/Atom">
  <workspace><atom:title>Default</atom:title><collection href="Packages"><atom:title>Packages</atom:title></collection></workspace>
</service>`

func entryXML(id, version, deps, published string) string {
	return fmt.Sprintf(`<entry xmlns="http://www.w3.org/2005/Atom" xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices" xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
  <title type="text">%[1]s</title>
  <content type="application/zip" src="http://feed/api/v2/package/%[1]s/%[2]s"/>
  <m:properties><d:Id>%[1]s</d:Id><d:Version>%[2]s</d:Version><d:Dependencies>%[3]s</d:Dependencies><d:Published m:type="Edm.DateTime">%[4]s</d:Published></m:properties>
</entry>`, id, version, deps, published)
}

func feedXML(next string, entries ...string) string {
	link := ""
	if next != "" {
		link = fmt.Sprintf(`<link rel="next" href="%s"/>`, next)
	}
	return `<feed xmlns="http://www.w3.org/2005/Atom">` + strings.Join(entries, "") + link + `</feed>`
}

func newV2Feed(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/":
			fmt.Fprint(w, serviceDocument)
		case r.URL.Path == "/api/v2/FindPackagesById()" && r.URL.Query().Get("page") == "":
			assert.Equal(t, "'a'", r.URL.Query().Get("id"))
			fmt.Fprint(w, feedXML(server.URL+"/api/v2/FindPackagesById()?id='a'&page=2",
				entryXML("a", "1.0.0", "b:[1.0.0, ):net45|c::net45", "2020-01-01T00:00:00")))
		case r.URL.Path == "/api/v2/FindPackagesById()":
			fmt.Fprint(w, feedXML("", entryXML("a", "2.0.0", "", "1900-01-01T00:00:00")))
		case strings.HasPrefix(r.URL.Path, "/api/v2/Packages(Id='a',Version='1.0.0')"):
			fmt.Fprint(w, entryXML("a", "1.0.0", "b:1.0", "2020-01-01T00:00:00"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient() *FeedClient {
	return NewFeedClient(nugethttp.NewClientWithOptions(nugethttp.WithResponseCache(nil), nugethttp.WithMaxRetries(0)))
}

func TestDetectV2Feed(t *testing.T) {
	server := newV2Feed(t)
	c := newClient()

	ok, err := c.DetectV2Feed(context.Background(), server.URL+"/api/v2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.DetectV2Feed(context.Background(), server.URL+"/other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindPackagesByID_FollowsNextLink(t *testing.T) {
	server := newV2Feed(t)

	entries, err := newClient().FindPackagesByID(context.Background(), server.URL+"/api/v2/", "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a", entries[0].PackageID())
	assert.Equal(t, "1.0.0", entries[0].Properties.Version)
	assert.True(t, entries[0].Properties.IsListed())
	assert.Equal(t, "b:[1.0.0, ):net45|c::net45", entries[0].Properties.Dependencies)
	assert.False(t, entries[1].Properties.IsListed())
}

func TestGetPackage(t *testing.T) {
	server := newV2Feed(t)
	c := newClient()

	entry, err := c.GetPackage(context.Background(), server.URL+"/api/v2", "a", "1.0.0")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "b:1.0", entry.Properties.Dependencies)
	assert.Contains(t, entry.Content.Src, "/package/a/1.0.0")

	missing, err := c.GetPackage(context.Background(), server.URL+"/api/v2", "a", "9.0.0")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseDependencies(t *testing.T) {
	groups := ParseDependencies("b:[1.0.0, ):net45| c :1.0: net45 |d::netstandard2.0|:|::net40")
	require.Len(t, groups, 3)

	assert.Equal(t, "net45", groups[0].TargetFramework)
	assert.Equal(t, []Dependency{{ID: "b", Range: "[1.0.0, )"}, {ID: "c", Range: "1.0"}}, groups[0].Dependencies)
	assert.Equal(t, "netstandard2.0", groups[1].TargetFramework)
	assert.Equal(t, []Dependency{{ID: "d"}}, groups[1].Dependencies)
	assert.Equal(t, "net40", groups[2].TargetFramework)
	assert.Empty(t, groups[2].Dependencies)

	untargeted := ParseDependencies("x:1.0|y")
	require.Len(t, untargeted, 1)
	assert.Equal(t, "", untargeted[0].TargetFramework)
	assert.Len(t, untargeted[0].Dependencies, 2)

	assert.Nil(t, ParseDependencies("  "))
}
