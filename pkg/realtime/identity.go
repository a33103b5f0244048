package realtime

import (
	"context"
	"net/http"
	"strings"
)

// Role values carried by resolved identities.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated principal behind a connection. The zero
// value is anonymous.
type Identity struct {
	ID    string
	Email string
	Role  string
}

// Anonymous is the identity of connections that presented no credential.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity carries no subject.
func (i Identity) IsAnonymous() bool {
	return i.ID == ""
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UserRoom returns the personal room name for the identity, or "" for
// anonymous identities.
func (i Identity) UserRoom() string {
	if i.IsAnonymous() {
		return ""
	}
	return "user:" + i.ID
}

// Resolver maps a transport credential to an identity. An empty credential
// must resolve to Anonymous with a nil error; a present but invalid
// credential must return an error wrapping ErrAuthFailed.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, credential string) (Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context, credential string) (Identity, error) {
	return f(ctx, credential)
}

// AnonymousResolver resolves every connection to Anonymous.
var AnonymousResolver = ResolverFunc(func(context.Context, string) (Identity, error) {
	return Anonymous, nil
})

// CredentialFromRequest extracts the auth credential from an upgrade
// request: the Authorization header first, then the token query parameter.
// A "Bearer " prefix is tolerated in either place. Returns "" when no
// credential is present.
func CredentialFromRequest(r *http.Request) string {
	credential := r.Header.Get("Authorization")
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}
	return strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
}
