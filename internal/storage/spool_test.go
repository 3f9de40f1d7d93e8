package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fleetdocs/internal/storage"
	storeMocks "fleetdocs/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSpool_StageOpenDiscard(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	spool := storage.NewSpool(mem)

	h, err := spool.Stage(ctx, "sess-1", "license.PDF", "", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "license.PDF", h.Name)
	assert.Equal(t, "application/octet-stream", h.ContentType)
	assert.Equal(t, int64(5), h.Size)
	assert.True(t, strings.HasPrefix(h.Key, "staging/sess-1/"))
	assert.True(t, strings.HasSuffix(h.Key, ".PDF"))
	assert.Equal(t, 1, mem.Len())

	rc, err := spool.Open(ctx, h.Key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, spool.Discard(ctx, h.Key))
	assert.Equal(t, 0, mem.Len())

	_, err = spool.Open(ctx, h.Key)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestSpool_StageErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil reader", func(t *testing.T) {
		spool := storage.NewSpool(storage.NewMemory())
		_, err := spool.Stage(ctx, "s", "a.pdf", "application/pdf", 1, nil)
		assert.ErrorContains(t, err, "reader is nil")
	})

	t.Run("storage failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "application/pdf" && opt.Metadata["original-filename"] == "a.pdf"
		})).Return(storage.ObjectInfo{}, errors.New("bucket gone"))

		spool := storage.NewSpool(mStore)
		_, err := spool.Stage(ctx, "s", "a.pdf", "application/pdf", 1, strings.NewReader("x"))
		assert.ErrorContains(t, err, "spool a.pdf: bucket gone")
		mStore.AssertExpectations(t)
	})

	t.Run("discard empty key", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		spool := storage.NewSpool(mStore)
		assert.NoError(t, spool.Discard(ctx, ""))
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
