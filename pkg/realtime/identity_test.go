package realtime_test

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storekit/storekit/pkg/realtime"
)

func TestCredentialFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		header   string
		query    string
		expected string
	}{
		{name: "absent", expected: ""},
		{name: "plain header", header: "tok123", expected: "tok123"},
		{name: "bearer header", header: "Bearer tok123", expected: "tok123"},
		{name: "query param", query: "tok123", expected: "tok123"},
		{name: "bearer in query", query: "Bearer tok123", expected: "tok123"},
		{name: "header wins over query", header: "h-tok", query: "q-tok", expected: "h-tok"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/ws", nil)
			if tc.query != "" {
				r.URL.RawQuery = "token=" + url.QueryEscape(tc.query)
			}
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			assert.Equal(t, tc.expected, realtime.CredentialFromRequest(r))
		})
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	assert.True(t, realtime.Anonymous.IsAnonymous())
	assert.False(t, realtime.Anonymous.IsAdmin())
	assert.Empty(t, realtime.Anonymous.UserRoom())

	admin := realtime.Identity{ID: "42", Role: realtime.RoleAdmin}
	assert.False(t, admin.IsAnonymous())
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "user:42", admin.UserRoom())
}
