// Package middleware holds the HTTP middleware shared by the API router.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookline/bookline/internal/tenancy"
)

// SessionClaims carries the authenticated caller's org scope inside an
// HMAC-signed JWT.
type SessionClaims struct {
	OrgID    string `json:"org_id"`
	Timezone string `json:"timezone,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// SessionAuth enforces a session JWT and stores the caller identity in the
// request context. Every booking endpoint sits behind this.
func SessionAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if strings.TrimSpace(claims.OrgID) == "" {
				http.Error(w, "token missing org scope", http.StatusUnauthorized)
				return
			}
			ctx := tenancy.WithIdentity(r.Context(), tenancy.Identity{
				OrgID:      claims.OrgID,
				Timezone:   claims.Timezone,
				ActorEmail: claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewSessionToken mints a session JWT; used by the dev login flow and tests.
func NewSessionToken(secret string, identity tenancy.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		OrgID:    identity.OrgID,
		Timezone: identity.Timezone,
		Email:    identity.ActorEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
