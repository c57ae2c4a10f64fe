package fetch

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/pkg/zyte"
)

// --- Zyte Mock ---

type mockZyteClient struct {
	mock.Mock
}

func (m *mockZyteClient) Extract(ctx context.Context, req zyte.ExtractRequest) (*zyte.ExtractResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zyte.ExtractResponse), args.Error(1)
}

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, req model.Request) (*model.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page), args.Error(1)
}
