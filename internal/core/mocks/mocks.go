package mocks

import (
	"context"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockUserFetcher is a mock implementation of domain.UserFetcher
type MockUserFetcher struct {
	mock.Mock
}

func NewMockUserFetcher() *MockUserFetcher {
	return &MockUserFetcher{}
}

func (m *MockUserFetcher) FetchUser(ctx context.Context) (*domain.UserRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserRecord), args.Error(1)
}
