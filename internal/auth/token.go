package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Formula-SAE/bugreport/internal/db"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ACCESS_TOKEN  = "access"
	REFRESH_TOKEN = "refresh"
)

const (
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidToken     = errors.New("token is invalid or expired")
	ErrWrongTokenType   = errors.New("token has wrong type")
	ErrTokenBlacklisted = errors.New("token is blacklisted")
)

type TokenService interface {
	IssuePair(userID uint) (TokenPair, error)
	ParseAccessToken(raw string) (*Claims, error)
	RefreshAccessToken(ctx context.Context, raw string) (string, error)
	BlacklistRefreshToken(ctx context.Context, raw string) error
}

// Blacklist stores revoked refresh tokens.
type Blacklist interface {
	BlacklistToken(ctx context.Context, token *db.BlacklistedToken) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

type TokenPair struct {
	Access  string
	Refresh string
}

type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTService struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Blacklist  Blacklist

	now func() time.Time
}

func NewJWTService(secret []byte, accessTTL, refreshTTL time.Duration, blacklist Blacklist) *JWTService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	return &JWTService{
		Secret:     secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Blacklist:  blacklist,
		now:        time.Now,
	}
}

func (s *JWTService) IssuePair(userID uint) (TokenPair, error) {
	access, err := s.sign(userID, ACCESS_TOKEN, s.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.sign(userID, REFRESH_TOKEN, s.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *JWTService) ParseAccessToken(raw string) (*Claims, error) {
	return s.parse(raw, ACCESS_TOKEN)
}

// RefreshAccessToken mints a new access token for a refresh token that has
// not been blacklisted.
func (s *JWTService) RefreshAccessToken(ctx context.Context, raw string) (string, error) {
	claims, err := s.parse(raw, REFRESH_TOKEN)
	if err != nil {
		return "", err
	}

	listed, err := s.Blacklist.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check blacklist: %w", err)
	}
	if listed {
		return "", ErrTokenBlacklisted
	}

	return s.sign(claims.UserID, ACCESS_TOKEN, s.AccessTTL)
}

func (s *JWTService) BlacklistRefreshToken(ctx context.Context, raw string) error {
	claims, err := s.parse(raw, REFRESH_TOKEN)
	if err != nil {
		return err
	}

	listed, err := s.Blacklist.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check blacklist: %w", err)
	}
	if listed {
		return ErrTokenBlacklisted
	}

	entry := &db.BlacklistedToken{
		JTI:    claims.ID,
		UserID: claims.UserID,
	}
	if claims.ExpiresAt != nil {
		entry.ExpiresAt = claims.ExpiresAt.Time
	}

	return s.Blacklist.BlacklistToken(ctx, entry)
}

func (s *JWTService) sign(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) parse(raw, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
