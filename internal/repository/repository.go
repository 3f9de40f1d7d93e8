// Package repository contains data access abstractions for commit reports.
// Implementations live in subpackages (postgres, memory).
package repository

import (
	"context"
	"errors"

	"fleetdocs/internal/model"
)

var ErrNotFound = errors.New("commit report not found")

// CommitReportRepository persists the outcome of staging commits.
// No business logic here, strictly persistence.
type CommitReportRepository interface {
	// Create stores a report with its items and returns it with ID set.
	Create(ctx context.Context, rep *model.CommitReport) (*model.CommitReport, error)

	// FindByID returns a report with its items, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.CommitReport, error)

	// List returns reports newest first without items.
	List(ctx context.Context, f ReportFilter) (*PageResult[model.CommitReport], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// ReportFilter narrows a report listing. Empty fields match everything.
type ReportFilter struct {
	PageQuery
	Module   model.Module
	EntityID string
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
