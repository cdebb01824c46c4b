package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

func TestJWTProvider_RoundTrip(t *testing.T) {
	p, err := NewJWTProvider("secret", "invoice-insights", time.Hour)
	require.NoError(t, err)

	token, err := p.Issue(port.Principal{UserID: "user-1", Email: "a@example.com", Name: "A"})
	require.NoError(t, err)

	got, err := p.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &port.Principal{UserID: "user-1", Email: "a@example.com", Name: "A"}, got)
}

func TestJWTProvider_Rejects(t *testing.T) {
	p, err := NewJWTProvider("secret", "invoice-insights", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTProvider("other-secret", "invoice-insights", time.Hour)
	require.NoError(t, err)
	wrongKey, err := other.Issue(port.Principal{UserID: "user-1"})
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: "someone-else"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "invoice-insights"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	expired, err := NewJWTProvider("secret", "invoice-insights", time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.Issue(port.Principal{UserID: "user-1"})
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"expired":      expiredToken,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.Authenticate(context.Background(), token)
			assert.ErrorIs(t, err, port.ErrUnauthenticated)
		})
	}
}

func TestNewJWTProvider_RequiresSecret(t *testing.T) {
	_, err := NewJWTProvider("", "", time.Hour)
	assert.Error(t, err)
}
