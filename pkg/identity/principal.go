// Package identity models the authenticated principal handed to the core by
// the external identity collaborator. Tokens are never validated here.
package identity

import (
	"net/http"
	"strings"
)

type User struct {
	ID    string
	Name  string
	Email string
}

type Principal struct {
	User         User
	Organization string
}

func (p *Principal) HasOrganization() bool {
	return p != nil && p.Organization != ""
}

// Extractor reads the principal for one request; (nil, false) means anonymous.
type Extractor interface {
	Extract(r *http.Request) (*Principal, bool)
}

type ExtractorFunc func(r *http.Request) (*Principal, bool)

func (f ExtractorFunc) Extract(r *http.Request) (*Principal, bool) {
	return f(r)
}

// HeaderExtractor trusts identity headers set by the upstream gateway.
type HeaderExtractor struct {
	UserIDHeader       string
	UserNameHeader     string
	UserEmailHeader    string
	OrganizationHeader string
}

func (h HeaderExtractor) Extract(r *http.Request) (*Principal, bool) {
	userID := strings.TrimSpace(r.Header.Get(h.UserIDHeader))
	if userID == "" {
		return nil, false
	}
	return &Principal{
		User: User{
			ID:    userID,
			Name:  strings.TrimSpace(r.Header.Get(h.UserNameHeader)),
			Email: strings.TrimSpace(r.Header.Get(h.UserEmailHeader)),
		},
		Organization: strings.TrimSpace(r.Header.Get(h.OrganizationHeader)),
	}, true
}
