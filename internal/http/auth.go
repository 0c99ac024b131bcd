package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ownerKey struct{}

var errUnauthorized = errors.New("unauthorized")

// Claims identify the owner of the expenses lists a request may touch. The
// owner id is the token subject.
type Claims struct {
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for ownerID valid for ttl.
func NewToken(secret []byte, ownerID string, ttl time.Duration, now time.Time) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// authMiddleware requires a valid bearer token and stores its subject as the
// request owner.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, r, fmt.Errorf("%w: missing authorization header", errUnauthorized))
				return
			}
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				writeError(w, r, fmt.Errorf("%w: invalid authorization header", errUnauthorized))
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return secret, nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid || claims.Subject == "" {
				writeError(w, r, fmt.Errorf("%w: invalid token", errUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ownerKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ownerFromContext returns the authenticated owner id.
func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
