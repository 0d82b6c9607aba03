package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "did:plc:alice",
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenExpiring(t *testing.T) {
	fresh := tokenExpiringAt(t, time.Now().Add(time.Hour))
	assert.False(t, tokenExpiring(fresh, refreshMargin))

	nearExpiry := tokenExpiringAt(t, time.Now().Add(30*time.Second))
	assert.True(t, tokenExpiring(nearExpiry, refreshMargin))

	expired := tokenExpiringAt(t, time.Now().Add(-time.Hour))
	assert.True(t, tokenExpiring(expired, refreshMargin))
}

func TestTokenExpiringGarbage(t *testing.T) {
	assert.True(t, tokenExpiring("", refreshMargin))
	assert.True(t, tokenExpiring("not-a-jwt", refreshMargin))
}

func TestTokenExpiringNoExpClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "did:plc:alice"})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	assert.True(t, tokenExpiring(signed, refreshMargin))
}
