package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type investorKey struct{}

// InvestorResolver resolves an investor address from a bearer token.
type InvestorResolver interface {
	ResolveInvestor(ctx context.Context, token string) (string, error)
}

// InvestorFromContext returns the investor address from context, if present.
func InvestorFromContext(ctx context.Context) (string, bool) {
	investor, ok := ctx.Value(investorKey{}).(string)
	return investor, ok
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver InvestorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			investor, err := resolver.ResolveInvestor(r.Context(), token)
			if err != nil || investor == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), investorKey{}, investor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultInvestor runs every request as investor. Used when auth is off.
func DefaultInvestor(investor string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), investorKey{}, investor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
