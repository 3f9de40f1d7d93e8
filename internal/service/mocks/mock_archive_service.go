package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"fleetdocs/internal/model"
	"fleetdocs/internal/service"
)

type MockArchiveService struct {
	mock.Mock
}

var _ service.ArchiveService = (*MockArchiveService)(nil)

func (m *MockArchiveService) List(ctx context.Context, q service.ArchiveQuery) (*model.Page[model.ArchivedDocumentRecord], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Page[model.ArchivedDocumentRecord]), args.Error(1)
}

func (m *MockArchiveService) Export(ctx context.Context, module model.Module, entityID string, w io.Writer) error {
	args := m.Called(ctx, module, entityID, w)
	if fn, ok := args.Get(0).(func(io.Writer) error); ok {
		return fn(w)
	}
	return args.Error(0)
}

func (m *MockArchiveService) Restore(ctx context.Context, id, role string) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockArchiveService) DocumentContent(ctx context.Context, id string) (*model.FileContent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileContent), args.Error(1)
}

func (m *MockArchiveService) ArchivedContent(ctx context.Context, id string) (*model.FileContent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileContent), args.Error(1)
}
