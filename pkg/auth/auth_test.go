package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{ID: "alex", Team: "platform"})

	p, err := GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alex", p.ID)
	assert.Equal(t, "platform", p.Team)
}

func TestGetPrincipalMissing(t *testing.T) {
	_, err := GetPrincipal(context.Background())
	assert.Error(t, err)
}

func TestActorIDDefaultsToSystem(t *testing.T) {
	assert.Equal(t, SystemActor, ActorID(context.Background()))

	ctx := WithPrincipal(context.Background(), Principal{ID: "alex"})
	assert.Equal(t, "alex", ActorID(ctx))
}

func signedToken(t *testing.T, claims TokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestFromBearer(t *testing.T) {
	header := "Bearer " + signedToken(t, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alex",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Team:  "platform",
		Roles: []string{"operator"},
	})

	p, err := FromBearer(header)
	require.NoError(t, err)
	assert.Equal(t, "alex", p.ID)
	assert.Equal(t, "platform", p.Team)
	assert.Equal(t, []string{"operator"}, p.Roles)
}

func TestFromBearerRejectsMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Basic abc", "token-without-scheme"} {
		_, err := FromBearer(header)
		assert.Error(t, err, "header %q", header)
	}
}

func TestFromBearerRequiresSubject(t *testing.T) {
	header := "Bearer " + signedToken(t, TokenClaims{Team: "platform"})
	_, err := FromBearer(header)
	assert.Error(t, err)
}
