package auth

import (
	"chatsphere/domain"
	"chatsphere/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chatsphere"

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier signs and checks HS256 tokens binding a connection to a user id.
// A Verifier without a secret is disabled: Enabled reports false and every
// token is refused.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Issue creates a signed token for user valid for ttl.
func (v *Verifier) Issue(user domain.UserID, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", fmt.Errorf("%w: no signing secret configured", errors.ErrUnauthorized)
	}
	now := v.now()
	claims := &Claims{
		UserID: string(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses and validates the signature and expiration of a token,
// returning the user id it carries.
func (v *Verifier) Verify(tokenString string) (domain.UserID, error) {
	if !v.Enabled() {
		return "", fmt.Errorf("%w: no signing secret configured", errors.ErrUnauthorized)
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: %w", errors.ErrUnauthorized, jwt.ErrTokenInvalidClaims)
	}
	return domain.UserID(claims.UserID), nil
}
