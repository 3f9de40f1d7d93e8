package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
)

// CommitReportMemory keeps commit reports in process. It backs the
// reports endpoint when Postgres is not configured.
type CommitReportMemory struct {
	mu      sync.RWMutex
	reports map[string]model.CommitReport
}

func NewCommitReportMemory() *CommitReportMemory {
	return &CommitReportMemory{reports: make(map[string]model.CommitReport)}
}

var _ repository.CommitReportRepository = (*CommitReportMemory)(nil)

func (m *CommitReportMemory) Create(_ context.Context, rep *model.CommitReport) (*model.CommitReport, error) {
	out := *rep
	out.ID = uuid.NewString()
	out.Items = append([]model.CommitReportItem(nil), rep.Items...)

	m.mu.Lock()
	m.reports[out.ID] = out
	m.mu.Unlock()
	return &out, nil
}

func (m *CommitReportMemory) FindByID(_ context.Context, id string) (*model.CommitReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (m *CommitReportMemory) List(_ context.Context, f repository.ReportFilter) (*repository.PageResult[model.CommitReport], error) {
	m.mu.RLock()
	matched := make([]model.CommitReport, 0, len(m.reports))
	for _, rep := range m.reports {
		if f.Module != "" && rep.Module != f.Module {
			continue
		}
		if f.EntityID != "" && rep.EntityID != f.EntityID {
			continue
		}
		rep.Items = nil
		matched = append(matched, rep)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].FinishedAt.Equal(matched[j].FinishedAt) {
			return matched[i].FinishedAt.After(matched[j].FinishedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(f.Offset, total)
	if start < 0 {
		start = 0
	}
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return &repository.PageResult[model.CommitReport]{Items: matched[start:end], Total: total}, nil
}
