package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storekit/storekit/pkg/logger"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// jwtClaims is the token shape issued by the auth service: subject plus
// denormalized email and role.
type jwtClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 bearer tokens and confirms the subject still
// exists in the user store. The role comes from the store record when
// present, so a revoked admin loses the role on the next connect even with
// an older token.
type JWTResolver struct {
	secret []byte
	users  UserStore
	log    *slog.Logger
}

// NewJWTResolver creates a resolver over the shared signing secret.
func NewJWTResolver(secret string, users UserStore, log *slog.Logger) *JWTResolver {
	if log == nil {
		log = slog.Default()
	}
	return &JWTResolver{
		secret: []byte(secret),
		users:  users,
		log:    log,
	}
}

// Resolve maps a credential to an identity. No credential means anonymous,
// not an error; an invalid or expired one fails with ErrAuthFailed. A user
// store outage fails this resolution only, never the gateway.
func (r *JWTResolver) Resolve(ctx context.Context, credential string) (gw.Identity, error) {
	if credential == "" {
		return gw.Anonymous, nil
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return gw.Identity{}, fmt.Errorf("%w: %w", gw.ErrAuthFailed, err)
	}
	if !token.Valid {
		return gw.Identity{}, fmt.Errorf("%w: invalid token", gw.ErrAuthFailed)
	}
	if claims.Subject == "" {
		return gw.Identity{}, fmt.Errorf("%w: token has no subject", gw.ErrAuthFailed)
	}

	identity := gw.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}

	if r.users != nil {
		user, err := r.users.Get(ctx, claims.Subject)
		switch {
		case errors.Is(err, ErrUserNotFound):
			return gw.Identity{}, fmt.Errorf("%w: unknown subject", gw.ErrAuthFailed)
		case err != nil:
			r.log.Error("user store unavailable during resolution",
				logger.UserID(claims.Subject),
				logger.Error(err))
			return gw.Identity{}, fmt.Errorf("identity store unavailable: %w", err)
		default:
			identity.Email = user.Email
			if user.Role != "" {
				identity.Role = user.Role
			}
		}
	}

	if identity.Role == "" {
		identity.Role = gw.RoleUser
	}
	return identity, nil
}
