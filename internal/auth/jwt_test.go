package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "issuer", time.Minute, Claims{UserID: 7, Role: RoleFI})
	require.NoError(t, err)

	claims, err := ParseToken("secret", "issuer", token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, RoleFI, claims.Role)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasRole(RoleAdmin, RoleFI))
	assert.False(t, claims.HasRole(RoleAdmin))
}

func TestParseTokenRejects(t *testing.T) {
	good, err := NewAccessToken("secret", "issuer", time.Minute, Claims{UserID: 1, Role: RoleAdmin})
	require.NoError(t, err)

	_, err = ParseToken("other-secret", "issuer", good)
	assert.Error(t, err, "wrong secret")

	_, err = ParseToken("secret", "someone-else", good)
	assert.Error(t, err, "wrong issuer")

	expired, err := NewAccessToken("secret", "issuer", -time.Minute, Claims{UserID: 1, Role: RoleAdmin})
	require.NoError(t, err)
	_, err = ParseToken("secret", "issuer", expired)
	assert.Error(t, err, "expired")

	unknownRole, err := NewAccessToken("secret", "issuer", time.Minute, Claims{UserID: 1, Role: "janitor"})
	require.NoError(t, err)
	_, err = ParseToken("secret", "issuer", unknownRole)
	assert.Error(t, err, "unknown role")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret!"))
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("root").Valid())
}
