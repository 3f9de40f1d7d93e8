package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/service"
	"fleetdocs/internal/staging"
)

type MockStagingService struct {
	mock.Mock
}

var _ service.StagingService = (*MockStagingService)(nil)

func (m *MockStagingService) view(args mock.Arguments) (*staging.View, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*staging.View), args.Error(1)
}

func (m *MockStagingService) Open(ctx context.Context, in service.OpenSessionInput) (*staging.View, error) {
	return m.view(m.Called(ctx, in))
}

func (m *MockStagingService) View(ctx context.Context, id string) (*staging.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockStagingService) Close(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStagingService) StageFile(ctx context.Context, id, documentTypeID string, f service.FileUpload) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentTypeID, f))
}

func (m *MockStagingService) UnstageFile(ctx context.Context, id, documentTypeID string, index int) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentTypeID, index))
}

func (m *MockStagingService) Replace(ctx context.Context, id, documentID string, mode service.ReplaceMode, f service.FileUpload) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentID, mode, f))
}

func (m *MockStagingService) MarkDelete(ctx context.Context, id, documentID string) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentID))
}

func (m *MockStagingService) UndoDelete(ctx context.Context, id, documentID string) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentID))
}

func (m *MockStagingService) MarkArchive(ctx context.Context, id, documentID string) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentID))
}

func (m *MockStagingService) UndoArchive(ctx context.Context, id, documentID string) (*staging.View, error) {
	return m.view(m.Called(ctx, id, documentID))
}

func (m *MockStagingService) Commit(ctx context.Context, id, entityID string) (*staging.CommitResult, error) {
	args := m.Called(ctx, id, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*staging.CommitResult), args.Error(1)
}

func (m *MockStagingService) Reset(ctx context.Context, id string) (*staging.View, error) {
	return m.view(m.Called(ctx, id))
}

func (m *MockStagingService) ListReports(ctx context.Context, f repository.ReportFilter) (*service.ReportListResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportListResult), args.Error(1)
}

func (m *MockStagingService) GetReport(ctx context.Context, id string) (*model.CommitReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommitReport), args.Error(1)
}

func (m *MockStagingService) Sweep(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *MockStagingService) Run(ctx context.Context, every time.Duration) {
	m.Called(ctx, every)
}
