package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/models"
	"gorm.io/gorm"
)

func TestSettingRepository(t *testing.T) {
	db := SetupTestDB()
	defer CleanupTestDB(db)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, models.SettingLastPort)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.Upsert(ctx, models.SettingLastPort, `"COM3"`)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, models.SettingLastPort, `"COM5"`)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, models.SettingCANID, `1`)
	require.NoError(t, err)

	got, err := repo.Get(ctx, models.SettingLastPort)
	require.NoError(t, err)
	assert.Equal(t, `"COM5"`, got.Value)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.SettingCANID, all[0].Key)

	require.NoError(t, repo.Delete(ctx, models.SettingCANID))
	require.NoError(t, repo.Delete(ctx, "missing"))
	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
