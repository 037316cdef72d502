package auth

import (
	"chatsphere/errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	t.Run("should round trip the user id", func(t *testing.T) {
		req := require.New(t)
		verifier := NewVerifier("a-strong-secret")

		token, err := verifier.Issue("alice", time.Hour)
		req.NoError(err)

		user, err := verifier.Verify(token)
		req.NoError(err)
		req.EqualValues("alice", user)
	})

	t.Run("should refuse a token signed with another secret", func(t *testing.T) {
		req := require.New(t)
		token, err := NewVerifier("other-secret").Issue("alice", time.Hour)
		req.NoError(err)

		_, err = NewVerifier("a-strong-secret").Verify(token)
		req.ErrorIs(err, errors.ErrUnauthorized)
	})

	t.Run("should refuse an expired token", func(t *testing.T) {
		req := require.New(t)
		verifier := NewVerifier("a-strong-secret")
		verifier.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := verifier.Issue("alice", time.Hour)
		req.NoError(err)

		verifier.now = time.Now
		_, err = verifier.Verify(token)
		req.ErrorIs(err, errors.ErrUnauthorized)
		req.ErrorIs(err, jwt.ErrTokenExpired)
	})

	t.Run("should refuse another signing method", func(t *testing.T) {
		req := require.New(t)
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "alice"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		req.NoError(err)

		_, err = NewVerifier("a-strong-secret").Verify(token)
		req.ErrorIs(err, errors.ErrUnauthorized)
	})

	t.Run("should be disabled without secret", func(t *testing.T) {
		req := require.New(t)
		verifier := NewVerifier("")
		req.False(verifier.Enabled())

		_, err := verifier.Issue("alice", time.Hour)
		req.ErrorIs(err, errors.ErrUnauthorized)
		_, err = verifier.Verify("whatever")
		req.ErrorIs(err, errors.ErrUnauthorized)
	})
}
