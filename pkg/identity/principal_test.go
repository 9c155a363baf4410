package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func extractor() HeaderExtractor {
	return HeaderExtractor{
		UserIDHeader:       "X-User-ID",
		UserNameHeader:     "X-User-Name",
		UserEmailHeader:    "X-User-Email",
		OrganizationHeader: "X-Organization",
	}
}

func TestHeaderExtractor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "42")
	r.Header.Set("X-User-Name", "Ada Lovelace")
	r.Header.Set("X-User-Email", "ada@acme.test")
	r.Header.Set("X-Organization", " acme ")

	p, ok := extractor().Extract(r)
	require.True(t, ok)
	require.Equal(t, "42", p.User.ID)
	require.Equal(t, "acme", p.Organization)
	require.True(t, p.HasOrganization())
}

func TestHeaderExtractor_Anonymous(t *testing.T) {
	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set("X-Organization", "acme")

	p, ok := extractor().Extract(r)
	require.False(t, ok)
	require.Nil(t, p)
	require.False(t, p.HasOrganization())
}

func TestHeaderExtractor_NoOrganizationClaim(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-ID", "7")

	p, ok := extractor().Extract(r)
	require.True(t, ok)
	require.False(t, p.HasOrganization())
}
