package auth

import (
	"fmt"
	"post-it/domain"
	"post-it/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser    = "user"
	RoleService = "service"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies credentials with the secret shared with the REST layer,
// so REST-issued and socket-layer identities live in the same trust domain.
type Issuer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{key: []byte(secret), issuer: issuer, now: time.Now}
}

// GenerateToken creates a signed JWT for a specific user.
func (i *Issuer) GenerateToken(userID domain.UserID, roles []string,
	authTokenDuration time.Duration) (string, error) {
	now := i.now()
	claims := &CustomClaims{
		UserID: userID.String(),
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
		},
	}

	// HS256 (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// ValidateToken parses and validates the signature, issuer and expiration of a JWT string.
func (i *Issuer) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return i.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || domain.UserID(claims.UserID).IsZero() {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthorized, jwt.ErrTokenInvalidClaims)
	}
	return claims, nil
}
