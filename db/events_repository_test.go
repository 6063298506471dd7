package db

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
)

func TestEventsRepository_Get(t *testing.T) {
	ctx := context.Background()
	db := GetDb(t)
	repo := NewEventsRepository(db)

	event, category := addEventWithCategory(t, db, "45.00", intPtr(10))

	found, err := repo.Get(ctx, event.EventID)
	require.NoError(t, err)

	assert.Equal(t, event.Title, found.Title)
	require.Len(t, found.Categories, 1)
	assert.Equal(t, category.CategoryID, found.Categories[0].CategoryID)
	assert.Equal(t, 10, found.Categories[0].AvailableCapacity())
	assert.False(t, found.BasePrice.Valid)

	_, err = repo.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, entity.ErrEventNotFound)
}

func TestEventsRepository_Reserve_concurrent(t *testing.T) {
	ctx := context.Background()
	db := GetDb(t)
	repo := NewEventsRepository(db)

	capacity := 5
	workers := 20
	event, category := addEventWithCategory(t, db, "10.00", intPtr(capacity))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		soldOut   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := updateInTx(ctx, db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
				return repo.Reserve(ctx, tx, category.CategoryID, 1)
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, entity.ErrSoldOut):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, workers-capacity, soldOut)

	found, err := repo.Get(ctx, event.EventID)
	require.NoError(t, err)
	assert.Equal(t, capacity, found.Categories[0].QuantitySold)
	assert.Equal(t, 0, found.Categories[0].AvailableCapacity())
}

func TestEventsRepository_Reserve_unlimited(t *testing.T) {
	ctx := context.Background()
	db := GetDb(t)
	repo := NewEventsRepository(db)

	_, category := addEventWithCategory(t, db, "10.00", nil)

	err := updateInTx(ctx, db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		return repo.Reserve(ctx, tx, category.CategoryID, 1000)
	})
	require.NoError(t, err)
}

func TestEventsRepository_FindOrCreateBaseCategory(t *testing.T) {
	ctx := context.Background()
	db := GetDb(t)
	repo := NewEventsRepository(db)

	event := addFlatPricedEvent(t, db, "25.00")

	var ids []string
	for i := 0; i < 2; i++ {
		err := updateInTx(ctx, db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
			category, err := repo.FindOrCreateBaseCategory(ctx, tx, event)
			if err != nil {
				return err
			}
			ids = append(ids, category.CategoryID)

			assert.Equal(t, entity.BaseCategoryName, category.Name)
			assert.Nil(t, category.QuantityTotal)
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, ids[0], ids[1], "base category should be created once")
}
