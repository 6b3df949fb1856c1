package auth

import (
	"net/http"
	"post-it/contract"
	"post-it/domain"
	"post-it/errors"
	"slices"
	"strings"
)

var _ contract.Authenticator = (*JWTAuthenticator)(nil)

// JWTAuthenticator is the connection-time credential check.
// It holds no state beyond the verification key.
type JWTAuthenticator struct {
	issuer *Issuer
}

func NewJWTAuthenticator(issuer *Issuer) *JWTAuthenticator {
	return &JWTAuthenticator{issuer: issuer}
}

func (a *JWTAuthenticator) Authenticate(credential string) (domain.UserID, error) {
	if strings.TrimSpace(credential) == "" {
		return "", errors.ErrMissingCredential
	}
	claims, err := a.issuer.ValidateToken(credential)
	if err != nil {
		return "", err
	}
	return domain.UserID(claims.UserID), nil
}

// RequireRole validates the credential and checks it carries the given role.
// Used by the ingestion API, which only trusts the REST layer's service tokens.
func (a *JWTAuthenticator) RequireRole(credential, role string) (domain.UserID, error) {
	if strings.TrimSpace(credential) == "" {
		return "", errors.ErrMissingCredential
	}
	claims, err := a.issuer.ValidateToken(credential)
	if err != nil {
		return "", err
	}
	if !slices.Contains(claims.Roles, role) {
		return "", errors.ErrForbiddenRole
	}
	return domain.UserID(claims.UserID), nil
}

// CredentialFromRequest extracts the bearer credential supplied at handshake time.
// The Authorization header wins over the token query parameter.
func CredentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		// Expecting the standard "Bearer <token>" format
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
