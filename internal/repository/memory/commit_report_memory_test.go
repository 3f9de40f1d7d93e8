package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdocs/internal/model"
	"fleetdocs/internal/repository"
)

func TestCommitReportMemory(t *testing.T) {
	ctx := context.Background()
	repo := NewCommitReportMemory()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	var ids []string
	for i, entity := range []string{"drv-1", "drv-1", "drv-2"} {
		rep, err := repo.Create(ctx, &model.CommitReport{
			Module:     model.ModuleDriver,
			EntityID:   entity,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
			Items:      []model.CommitReportItem{{Kind: "upload"}},
		})
		require.NoError(t, err)
		require.NotEmpty(t, rep.ID)
		ids = append(ids, rep.ID)
	}

	got, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	page, err := repo.List(ctx, repository.ReportFilter{Module: model.ModuleDriver, EntityID: "drv-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[1], page.Items[0].ID)
	assert.Nil(t, page.Items[0].Items)

	page, err = repo.List(ctx, repository.ReportFilter{PageQuery: repository.PageQuery{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[1], page.Items[0].ID)

	page, err = repo.List(ctx, repository.ReportFilter{PageQuery: repository.PageQuery{Offset: 10}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = repo.List(ctx, repository.ReportFilter{Module: model.ModuleVehicle})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}
