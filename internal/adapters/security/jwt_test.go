package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifierRoundTrip(t *testing.T) {
	v, err := NewHMACVerifier("s3cret", "viralforge-auth")
	require.NoError(t, err)

	raw, err := v.Sign("aff-1", "affiliate", time.Hour)
	require.NoError(t, err)
	claims, err := v.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "aff-1", claims.SubjectID)
	require.Equal(t, "affiliate", claims.Role)
}

func TestHMACVerifierRejects(t *testing.T) {
	v, err := NewHMACVerifier("s3cret", "viralforge-auth")
	require.NoError(t, err)

	other, err := NewHMACVerifier("other", "viralforge-auth")
	require.NoError(t, err)
	foreign, err := other.Sign("aff-1", "affiliate", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewHMACVerifier("s3cret", "someone-else")
	require.NoError(t, err)
	badIssuer, err := wrongIssuer.Sign("aff-1", "affiliate", time.Hour)
	require.NoError(t, err)

	expired, err := v.Sign("aff-1", "affiliate", -time.Hour)
	require.NoError(t, err)

	noSubject, err := v.Sign("", "admin", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "aff-1", "iss": "viralforge-auth"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "aff-1", "iss": "viralforge-auth", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":         "not-a-token",
		"foreign secret":  foreign,
		"wrong issuer":    badIssuer,
		"expired":         expired,
		"missing subject": noSubject,
		"missing expiry":  noExpiry,
		"unexpected alg":  hs512,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(raw)
			require.Error(t, err)
		})
	}
}

func TestNewHMACVerifierRequiresSecret(t *testing.T) {
	_, err := NewHMACVerifier("  ", "")
	require.Error(t, err)
}
