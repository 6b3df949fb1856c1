package auth

import (
	"post-it/domain"
	"post-it/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-secret-shared-with-the-rest-layer"

func TestIssuer_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	issuer := NewIssuer(testSecret, "post-it")

	token, err := issuer.GenerateToken("alice", []string{RoleUser}, time.Hour)
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal([]string{RoleUser}, claims.Roles)
	req.Equal("post-it", claims.Issuer)
}

func TestIssuer_ValidateToken_Rejects(t *testing.T) {
	issuer := NewIssuer(testSecret, "post-it")

	expired := NewIssuer(testSecret, "post-it")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.GenerateToken("alice", []string{RoleUser}, time.Hour)
	require.NoError(t, err)

	otherIssuerToken, err := NewIssuer(testSecret, "someone-else").GenerateToken("alice", nil, time.Hour)
	require.NoError(t, err)

	otherKeyToken, err := NewIssuer("another-secret", "post-it").GenerateToken("alice", nil, time.Hour)
	require.NoError(t, err)

	anonymousToken, err := issuer.GenerateToken("", nil, time.Hour)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"expired":         expiredToken,
		"other issuer":    otherIssuerToken,
		"other key":       otherKeyToken,
		"missing user id": anonymousToken,
		"none algorithm":  noneToken,
		"malformed":       "not.a.jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			claims, err := issuer.ValidateToken(token)
			req.ErrorIs(err, errors.ErrUnauthorized)
			req.Nil(claims)
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	req := require.New(t)
	issuer := NewIssuer(testSecret, "post-it")
	authenticator := NewJWTAuthenticator(issuer)

	token, err := issuer.GenerateToken("alice", []string{RoleUser}, time.Minute)
	req.NoError(err)

	userID, err := authenticator.Authenticate(token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), userID)

	_, err = authenticator.Authenticate("  ")
	req.ErrorIs(err, errors.ErrMissingCredential)
	req.ErrorIs(err, errors.ErrUnauthorized)

	_, err = authenticator.Authenticate("garbage")
	req.ErrorIs(err, errors.ErrUnauthorized)
}

func TestJWTAuthenticator_RequireRole(t *testing.T) {
	req := require.New(t)
	issuer := NewIssuer(testSecret, "post-it")
	authenticator := NewJWTAuthenticator(issuer)

	serviceToken, err := issuer.GenerateToken("rest-api", []string{RoleService}, time.Minute)
	req.NoError(err)
	userToken, err := issuer.GenerateToken("alice", []string{RoleUser}, time.Minute)
	req.NoError(err)

	userID, err := authenticator.RequireRole(serviceToken, RoleService)
	req.NoError(err)
	req.Equal(domain.UserID("rest-api"), userID)

	_, err = authenticator.RequireRole(userToken, RoleService)
	req.ErrorIs(err, errors.ErrForbiddenRole)
	req.ErrorIs(err, errors.ErrUnauthorized)
}
