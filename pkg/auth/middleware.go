package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ContextWithClaims returns a new context with the given Claims attached.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts Claims from the context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// Policy decides which RPCs need a token and which roles they need.
type Policy struct {
	// Public methods are served without a token.
	Public []string
	// Roles maps a full method name to the roles allowed to call it.
	// Methods absent from the map accept any authenticated caller.
	Roles map[string][]string
}

// UnaryAuthInterceptor authenticates the bearer token, enforces the
// role policy and attaches the claims to the context.
func UnaryAuthInterceptor(jwtService *JWTService, policy Policy) grpc.UnaryServerInterceptor {
	public := make(map[string]struct{}, len(policy.Public))
	for _, m := range policy.Public {
		public[m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := public[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		claims, err := authenticate(ctx, jwtService)
		if err != nil {
			return nil, err
		}
		if roles, ok := policy.Roles[info.FullMethod]; ok && !claims.HasAnyRole(roles...) {
			return nil, status.Errorf(codes.PermissionDenied, "%s requires one of %v", info.FullMethod, roles)
		}
		return handler(ContextWithClaims(ctx, claims), req)
	}
}

func authenticate(ctx context.Context, jwtService *JWTService) (*Claims, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}
	header := md.Get("authorization")
	if len(header) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}
	token, found := strings.CutPrefix(header[0], "Bearer ")
	if !found || token == "" {
		return nil, status.Error(codes.Unauthenticated, "authorization header is not a bearer token")
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return claims, nil
}
