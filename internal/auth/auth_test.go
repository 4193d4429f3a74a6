package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryBlacklist struct {
	tokens map[string]*db.BlacklistedToken
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{tokens: map[string]*db.BlacklistedToken{}}
}

func (m *memoryBlacklist) BlacklistToken(_ context.Context, token *db.BlacklistedToken) error {
	m.tokens[token.JTI] = token
	return nil
}

func (m *memoryBlacklist) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.tokens[jti]
	return ok, nil
}

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash([]byte("password"))
	require.NoError(t, err)
	assert.NotEqual(t, "password", string(hash))
	assert.True(t, IsHashed(string(hash)))

	assert.NoError(t, hasher.Compare(hash, []byte("password")))
	assert.Error(t, hasher.Compare(hash, []byte("wrong")))
}

func TestHashPassword(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	t.Run("plain text is hashed", func(t *testing.T) {
		hashed, err := HashPassword(hasher, "password")
		require.NoError(t, err)
		assert.True(t, IsHashed(hashed))
	})

	t.Run("existing hash is kept", func(t *testing.T) {
		first, err := HashPassword(hasher, "password")
		require.NoError(t, err)

		second, err := HashPassword(hasher, first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("dollar prefixed passwords are not mistaken for hashes", func(t *testing.T) {
		assert.False(t, IsHashed("$2a$short"))
	})
}

func TestJWTService(t *testing.T) {
	ctx := context.Background()

	t.Run("issued access token parses", func(t *testing.T) {
		s := NewJWTService([]byte("secret"), 0, 0, newMemoryBlacklist())

		pair, err := s.IssuePair(42)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)

		claims, err := s.ParseAccessToken(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, ACCESS_TOKEN, claims.TokenType)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		s := NewJWTService([]byte("secret"), 0, 0, newMemoryBlacklist())
		pair, err := s.IssuePair(1)
		require.NoError(t, err)

		_, err = s.ParseAccessToken(pair.Refresh)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("foreign signature is rejected", func(t *testing.T) {
		issuer := NewJWTService([]byte("one"), 0, 0, newMemoryBlacklist())
		verifier := NewJWTService([]byte("two"), 0, 0, newMemoryBlacklist())

		pair, err := issuer.IssuePair(1)
		require.NoError(t, err)

		_, err = verifier.ParseAccessToken(pair.Access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired access token is rejected", func(t *testing.T) {
		s := NewJWTService([]byte("secret"), time.Minute, 0, newMemoryBlacklist())
		pair, err := s.IssuePair(1)
		require.NoError(t, err)

		s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err = s.ParseAccessToken(pair.Access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("blacklisted refresh token cannot be reused", func(t *testing.T) {
		blacklist := newMemoryBlacklist()
		s := NewJWTService([]byte("secret"), 0, 0, blacklist)
		pair, err := s.IssuePair(7)
		require.NoError(t, err)

		access, err := s.RefreshAccessToken(ctx, pair.Refresh)
		require.NoError(t, err)
		claims, err := s.ParseAccessToken(access)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)

		require.NoError(t, s.BlacklistRefreshToken(ctx, pair.Refresh))
		assert.Len(t, blacklist.tokens, 1)

		_, err = s.RefreshAccessToken(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrTokenBlacklisted)

		err = s.BlacklistRefreshToken(ctx, pair.Refresh)
		assert.True(t, errors.Is(err, ErrTokenBlacklisted))
	})

	t.Run("access token cannot be blacklisted", func(t *testing.T) {
		s := NewJWTService([]byte("secret"), 0, 0, newMemoryBlacklist())
		pair, err := s.IssuePair(1)
		require.NoError(t, err)

		assert.ErrorIs(t, s.BlacklistRefreshToken(ctx, pair.Access), ErrWrongTokenType)
		assert.ErrorIs(t, s.BlacklistRefreshToken(ctx, "garbage"), ErrInvalidToken)
	})
}
