package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newHMACService(t *testing.T, ttl time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{Secret: "unit-test-secret", Issuer: "sacco", Expiration: ttl})
	require.NoError(t, err)
	return svc
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newHMACService(t, 15*time.Minute)

	token, err := svc.GenerateToken("officer-7", "branch-nairobi", []string{RoleLoanOfficer, RoleCreditManager})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "officer-7", claims.Subject)
	assert.Equal(t, "branch-nairobi", claims.BranchID)
	assert.True(t, claims.HasRole(RoleCreditManager))
	assert.False(t, claims.HasRole(RoleAdmin))
	assert.True(t, claims.HasAnyRole(RoleAdmin, RoleLoanOfficer))
}

func TestValidateTokenRejects(t *testing.T) {
	t.Run("expired", func(t *testing.T) {
		svc := newHMACService(t, -time.Hour)
		token, err := svc.GenerateToken("u", "", nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := newHMACService(t, time.Minute).GenerateToken("u", "", nil)
		require.NoError(t, err)

		other, err := NewJWTService(JWTConfig{Secret: "other", Issuer: "sacco", Expiration: time.Minute})
		require.NoError(t, err)
		_, err = other.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		issuer, err := NewJWTService(JWTConfig{Secret: "unit-test-secret", Issuer: "elsewhere", Expiration: time.Minute})
		require.NoError(t, err)
		token, err := issuer.GenerateToken("u", "", nil)
		require.NoError(t, err)

		_, err = newHMACService(t, time.Minute).ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestNewJWTServiceRequiresKeyMaterial(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	assert.Error(t, err)
}

func TestUnaryAuthInterceptor(t *testing.T) {
	svc := newHMACService(t, time.Minute)
	interceptor := UnaryAuthInterceptor(svc, Policy{
		Public: []string{"/grpc.health.v1.Health/Check"},
		Roles:  map[string][]string{"/loans/Waive": {RoleCreditManager, RoleAdmin}},
	})

	var seen *Claims
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = ClaimsFromContext(ctx)
		return "ok", nil
	}

	t.Run("skipped method passes without token", func(t *testing.T) {
		seen = nil
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
		require.NoError(t, err)
		assert.Nil(t, seen)
	})

	t.Run("missing header is unauthenticated", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("valid bearer token attaches claims", func(t *testing.T) {
		token, err := svc.GenerateToken("manager-1", "", []string{RoleCreditManager})
		require.NoError(t, err)
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))

		_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler)
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "manager-1", seen.Subject)
	})

	t.Run("non-bearer header is unauthenticated", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc"))
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("role policy", func(t *testing.T) {
		teller, err := svc.GenerateToken("teller-3", "", []string{RoleTeller})
		require.NoError(t, err)
		manager, err := svc.GenerateToken("manager-1", "", []string{RoleCreditManager})
		require.NoError(t, err)

		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+teller))
		_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/loans/Waive"}, handler)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		seen = nil
		ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+manager))
		_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/loans/Waive"}, handler)
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "manager-1", seen.Subject)
	})
}
