package repository

import (
	"context"
	"testing"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIngredientRepository_Search(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := NewIngredientRepository(db, nil)

	for _, name := range []string{"Сахар", "сахарная пудра", "соль", "Apple", "applesauce", "50% cream", "500g butter"} {
		testutil.CreateIngredient(t, db, name, "g")
	}

	names := func(items []models.Ingredient) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.Name
		}
		return out
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{"app", []string{"Apple", "applesauce"}},
		{"сах", []string{"Сахар", "сахарная пудра"}},
		{"САХАР", []string{"Сахар", "сахарная пудра"}},
		{"Со", []string{"соль"}},
		{"APP", []string{"Apple", "applesauce"}},
		{"sauce", []string{}},
		{"50%", []string{"50% cream"}},
		{"5", []string{"50% cream", "500g butter"}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	all, err := repo.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestIngredientRepository_CacheAndBatch(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	mr, rdb := newRedis(t)
	repo := NewIngredientRepository(db, rdb)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.CreateBatch(ctx, []models.Ingredient{
		{Name: "milk", MeasurementUnit: "ml"},
		{Name: "mint", MeasurementUnit: "g"},
	}))

	got, err := repo.Search(ctx, "mi")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, mr.Exists(cache.IngredientSearchCacheKey("mi")))

	// Rows written behind the repository stay invisible until the cache is dropped.
	testutil.CreateIngredient(t, db, "millet", "g")
	got, err = repo.Search(ctx, "mi")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, repo.CreateBatch(ctx, []models.Ingredient{{Name: "mirin", MeasurementUnit: "ml"}}))
	got, err = repo.Search(ctx, "mi")
	require.NoError(t, err)
	assert.Len(t, got, 4)

	one, err := repo.GetByID(ctx, got[0].ID)
	require.NoError(t, err)
	assert.Equal(t, got[0].Name, one.Name)

	_, err = repo.GetByID(ctx, 9999)
	assertCode(t, err, models.CodeNotFound)
}

func TestTagRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	mr, rdb := newRedis(t)
	repo := NewTagRepository(db, rdb)

	seed := []models.Tag{
		{Name: "Завтрак", Color: "#E26C2D", Slug: "breakfast"},
		{Name: "Обед", Color: "#49B64E", Slug: "lunch"},
	}
	require.NoError(t, repo.UpsertBySlug(ctx, seed))

	tags, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.True(t, mr.Exists(cache.TagsKey))

	t.Run("upsert is idempotent and refreshes cache", func(t *testing.T) {
		require.NoError(t, repo.UpsertBySlug(ctx, []models.Tag{
			{Name: "Breakfast", Color: "#000000", Slug: "breakfast"},
			{Name: "Ужин", Color: "#8775D2", Slug: "dinner"},
		}))
		assert.False(t, mr.Exists(cache.TagsKey))

		tags, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tags, 3)
		assert.Equal(t, "Breakfast", tags[0].Name)
		assert.Equal(t, "#000000", tags[0].Color)
	})

	t.Run("get by id", func(t *testing.T) {
		tag, err := repo.GetByID(ctx, tags[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "lunch", tag.Slug)

		_, err = repo.GetByID(ctx, 999)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("find by ids skips unknown", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, []uint{tags[0].ID, 999})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, tags[0].ID, found[0].ID)
	})
}
