package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitsocial/internal/config"
)

type memoryBlacklist struct {
	revoked map[string]bool
}

func (b *memoryBlacklist) Add(ctx context.Context, jti string, exp time.Time) error {
	b.revoked[jti] = true
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return b.revoked[jti], nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: time.Hour}
}

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := testAuthConfig()

	token, err := GenerateToken(42, "runner", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "runner", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenWrongKey(t *testing.T) {
	cfg := testAuthConfig()

	token, err := GenerateToken(1, "runner", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "other-secret", nil)
	assert.Error(t, err)
}

func TestValidateTokenRevoked(t *testing.T) {
	cfg := testAuthConfig()
	blacklist := &memoryBlacklist{revoked: map[string]bool{}}

	token, err := GenerateToken(1, "runner", cfg)
	require.NoError(t, err)

	claims, err := ValidateToken(context.Background(), token, cfg.JWTSecretKey, blacklist)
	require.NoError(t, err)

	require.NoError(t, blacklist.Add(context.Background(), claims.ID, claims.ExpiresAt.Time))

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, blacklist)
	assert.ErrorContains(t, err, "revoked")
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := config.AuthConfig{JWTSecretKey: "test-secret", JWTExpiry: -time.Minute}

	token, err := GenerateToken(1, "runner", cfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, cfg.JWTSecretKey, nil)
	assert.Error(t, err)
}
