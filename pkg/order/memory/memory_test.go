package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderqueue/pkg/order"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)

	require.NoError(t, repo.SetItemStatus(ctx, 1, 0, order.StatusComplete))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.StatusComplete, list[0].Items[0].Status)

	require.NoError(t, repo.Reset(ctx))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)
	assert.Equal(t, order.StatusPending, list[0].Items[0].Status)
}

func TestResetRestoresSeedAfterEdits(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)

	require.NoError(t, repo.SetItemStatus(ctx, 4, 3, order.StatusComplete))
	require.NoError(t, repo.SetItemStatus(ctx, 7, 0, order.StatusUnavailable))
	require.NoError(t, repo.Replace(ctx, []order.Order{{ID: 99}}))
	require.NoError(t, repo.Reset(ctx))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.Seed(), list)
}

func TestSetItemStatusErrors(t *testing.T) {
	ctx := context.Background()
	repo := New([]order.Order{{ID: 1, Items: []order.Item{{Name: "A", Status: order.StatusPending}}}})

	assert.ErrorIs(t, repo.SetItemStatus(ctx, 2, 0, order.StatusComplete), order.ErrOrderNotFound)
	assert.ErrorIs(t, repo.SetItemStatus(ctx, 1, 1, order.StatusComplete), order.ErrItemNotFound)
	assert.ErrorIs(t, repo.SetItemStatus(ctx, 1, -1, order.StatusComplete), order.ErrItemNotFound)
}

func TestSetItemStatusAcceptsAnyStatus(t *testing.T) {
	ctx := context.Background()
	repo := New([]order.Order{{ID: 1, Items: []order.Item{{Name: "A", Status: order.StatusPending}}}})

	require.NoError(t, repo.SetItemStatus(ctx, 1, 0, "misplaced"))
	list, _ := repo.List(ctx)
	assert.Equal(t, order.Status("misplaced"), list[0].Items[0].Status)
}

func TestReplaceIsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)

	first := []order.Order{{ID: 1, Items: []order.Item{{Name: "A", Status: order.StatusComplete}}}}
	second := []order.Order{
		{ID: 5, Items: []order.Item{{Name: "X", Status: order.StatusPending}}},
		{ID: 5, Items: []order.Item{{Name: "Y", Status: "odd"}}},
	}
	require.NoError(t, repo.Replace(ctx, first))
	require.NoError(t, repo.Replace(ctx, second))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, list)

	// status updates land on the first order with a matching id
	require.NoError(t, repo.SetItemStatus(ctx, 5, 0, order.StatusComplete))
	list, _ = repo.List(ctx)
	assert.Equal(t, order.StatusComplete, list[0].Items[0].Status)
	assert.Equal(t, order.Status("odd"), list[1].Items[0].Status)
}

func TestReplaceNilYieldsEmptyList(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)
	require.NoError(t, repo.Replace(ctx, nil))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)
	list, _ := repo.List(ctx)
	list[0].Items[0].Status = order.StatusComplete

	again, _ := repo.List(ctx)
	assert.Equal(t, order.StatusPending, again[0].Items[0].Status)
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	repo := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = repo.SetItemStatus(ctx, 1, 0, order.StatusComplete)
		}()
		go func() {
			defer wg.Done()
			_ = repo.Replace(ctx, order.Seed())
		}()
	}
	wg.Wait()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}
