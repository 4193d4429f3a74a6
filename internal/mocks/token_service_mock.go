package mocks

import (
	"context"

	"github.com/Formula-SAE/bugreport/internal/auth"
	"github.com/stretchr/testify/mock"
)

type TokenService struct{ mock.Mock }

func (m *TokenService) IssuePair(userID uint) (auth.TokenPair, error) {
	args := m.Called(userID)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *TokenService) ParseAccessToken(raw string) (*auth.Claims, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func (m *TokenService) RefreshAccessToken(ctx context.Context, raw string) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}

func (m *TokenService) BlacklistRefreshToken(ctx context.Context, raw string) error {
	return m.Called(ctx, raw).Error(0)
}
