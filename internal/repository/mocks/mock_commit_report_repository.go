package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
)

type MockCommitReportRepository struct {
	mock.Mock
}

var _ repository.CommitReportRepository = (*MockCommitReportRepository)(nil)

func (m *MockCommitReportRepository) Create(ctx context.Context, rep *model.CommitReport) (*model.CommitReport, error) {
	args := m.Called(ctx, rep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommitReport), args.Error(1)
}

func (m *MockCommitReportRepository) FindByID(ctx context.Context, id string) (*model.CommitReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommitReport), args.Error(1)
}

func (m *MockCommitReportRepository) List(ctx context.Context, f repository.ReportFilter) (*repository.PageResult[model.CommitReport], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.CommitReport]), args.Error(1)
}
