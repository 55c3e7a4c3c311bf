// Package auth adds feed credentials to outgoing requests.
package auth

import (
	"net/http"
)

// Authenticator decorates a feed request with credentials.
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Type names an authentication scheme.
type Type string

const (
	TypeNone   Type = "none"
	TypeAPIKey Type = "apikey"
	TypeBearer Type = "bearer"
	TypeBasic  Type = "basic"
)

// BasicAuthenticator sends HTTP basic credentials, as configured by a
// packageSourceCredentials entry.
type BasicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator returns a basic authenticator.
func NewBasicAuthenticator(username, password string) *BasicAuthenticator {
	return &BasicAuthenticator{username: username, password: password}
}

// Authenticate sets the Authorization header unless both fields are empty.
func (a *BasicAuthenticator) Authenticate(req *http.Request) error {
	if a.username != "" || a.password != "" {
		req.SetBasicAuth(a.username, a.password)
	}
	return nil
}

func (a *BasicAuthenticator) Type() Type { return TypeBasic }

// APIKeyAuthenticator sends X-NuGet-ApiKey.
type APIKeyAuthenticator struct {
	apiKey string
}

func NewAPIKeyAuthenticator(apiKey string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{apiKey: apiKey}
}

func (a *APIKeyAuthenticator) Authenticate(req *http.Request) error {
	if a.apiKey != "" {
		req.Header.Set("X-NuGet-ApiKey", a.apiKey)
	}
	return nil
}

func (a *APIKeyAuthenticator) Type() Type { return TypeAPIKey }

// BearerAuthenticator sends a bearer token, e.g. an Azure Artifacts PAT
// exchanged for an access token.
type BearerAuthenticator struct {
	token string
}

func NewBearerAuthenticator(token string) *BearerAuthenticator {
	return &BearerAuthenticator{token: token}
}

func (a *BearerAuthenticator) Authenticate(req *http.Request) error {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	return nil
}

func (a *BearerAuthenticator) Type() Type { return TypeBearer }

// Chain applies each authenticator in order and stops at the first error.
type Chain []Authenticator

func (c Chain) Authenticate(req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Authenticate(req); err != nil {
			return err
		}
	}
	return nil
}
