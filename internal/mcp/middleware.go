package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const investorKey contextKey = iota

// getInvestor extracts the calling investor's address from context.
func getInvestor(ctx context.Context) string {
	v, _ := ctx.Value(investorKey).(string)
	return v
}

// InvestorResolver resolves an investor address from a bearer token.
type InvestorResolver interface {
	ResolveInvestor(ctx context.Context, token string) (string, error)
}

// TokenMap resolves bearer tokens from a fixed token to address map.
type TokenMap map[string]string

// ResolveInvestor implements InvestorResolver.
func (m TokenMap) ResolveInvestor(_ context.Context, token string) (string, error) {
	addr, ok := m[token]
	if !ok || addr == "" {
		return "", fmt.Errorf("unknown token")
	}
	return addr, nil
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver InvestorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			if resolver == nil {
				return nil, fmt.Errorf("unauthorized: no token resolver")
			}
			investor, err := resolver.ResolveInvestor(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			ctx = context.WithValue(ctx, investorKey, investor)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects a default investor when auth is disabled.
func noAuthMiddleware(defaultInvestor string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, investorKey, defaultInvestor)
			return next(ctx, method, req)
		}
	}
}
