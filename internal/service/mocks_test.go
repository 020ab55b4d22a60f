package service

import (
	"context"

	"github-profile-miner/internal/domain"

	"github.com/google/go-github/v53/github"
	"github.com/stretchr/testify/mock"
)

type MockGitHubClient struct {
	mock.Mock
}

func (m *MockGitHubClient) FetchUser(ctx context.Context, username, token string) (*github.User, error) {
	args := m.Called(ctx, username, token)
	user, _ := args.Get(0).(*github.User)
	return user, args.Error(1)
}

func (m *MockGitHubClient) FetchRepos(ctx context.Context, username, token string) []*github.Repository {
	args := m.Called(ctx, username, token)
	return args.Get(0).([]*github.Repository)
}

type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) DetectLanguage(bio *string) domain.LanguageResult {
	args := m.Called(bio)
	return args.Get(0).(domain.LanguageResult)
}

func (m *MockEnricher) Sentiment(bio *string) *float64 {
	args := m.Called(bio)
	score, _ := args.Get(0).(*float64)
	return score
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Upsert(ctx context.Context, profile *domain.Profile) (uint, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockProfileStore) FindByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	args := m.Called(ctx, username)
	profile, _ := args.Get(0).(*domain.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) RecordExport(ctx context.Context, export *domain.DataExport) error {
	args := m.Called(ctx, export)
	return args.Error(0)
}

func (m *MockProfileStore) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return m.Called().Error(0)
}
