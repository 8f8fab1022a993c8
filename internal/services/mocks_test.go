package services_test

import (
	"context"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockUploadClient is a mock implementation of UploadClient
type MockUploadClient struct {
	mock.Mock
}

func (m *MockUploadClient) Upload(ctx context.Context, image *models.ImageFile) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

// MockRecordClient is a mock implementation of RecordClient
type MockRecordClient struct {
	mock.Mock
}

func (m *MockRecordClient) Create(ctx context.Context, payload models.ApplicationPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// MockAuthGate is a mock implementation of AuthGate
type MockAuthGate struct {
	mock.Mock
}

func (m *MockAuthGate) SignIn(ctx context.Context, credential string) (*models.AuthSession, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthSession), args.Error(1)
}

// blockingRecordClient holds Create until released, or until the step context ends
type blockingRecordClient struct {
	entered chan struct{}
	release chan struct{}
	calls   int
}

func newBlockingRecordClient() *blockingRecordClient {
	return &blockingRecordClient{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingRecordClient) Create(ctx context.Context, _ models.ApplicationPayload) error {
	b.calls++
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// blockingUploadClient holds Upload until released, then returns url
type blockingUploadClient struct {
	entered chan struct{}
	release chan struct{}
	url     string
	calls   int
}

func newBlockingUploadClient(url string) *blockingUploadClient {
	return &blockingUploadClient{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
		url:     url,
	}
}

func (b *blockingUploadClient) Upload(ctx context.Context, _ *models.ImageFile) (string, error) {
	b.calls++
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return b.url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
