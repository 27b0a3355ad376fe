package remote

import (
	"net/http"

	"github.com/google/uuid"
)

// Credential is what a session authenticates with: a bearer token for an
// interactive login, an API key for programmatic use, or both.
type Credential struct {
	BearerToken string
	APIKey      string
}

func (c Credential) Empty() bool {
	return c.BearerToken == "" && c.APIKey == ""
}

// AuthTransport attaches the credential to every outbound request. A request
// without any credential still goes out; the remote rejects it.
type AuthTransport struct {
	Base       http.RoundTripper
	Credential Credential
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	if t.Credential.BearerToken != "" {
		r.Header.Set("Authorization", "Bearer "+t.Credential.BearerToken)
	}
	if t.Credential.APIKey != "" {
		r.Header.Set("X-API-Key", t.Credential.APIKey)
	}
	if r.Header.Get("X-Request-ID") == "" {
		r.Header.Set("X-Request-ID", uuid.NewString())
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
