package seed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIngredients_EmbeddedDefaults(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewIngredientRepository(db, nil)
	ctx := context.Background()

	raw, err := ReadDataFile("", IngredientsFile)
	require.NoError(t, err)

	n, err := LoadIngredients(ctx, repo, raw)
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, n, count)

	// A second load is skipped entirely.
	n, err = LoadIngredients(ctx, repo, raw)
	require.NoError(t, err)
	assert.Zero(t, n)
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, len(mustRecords(t, raw)), count)
}

func TestLoadIngredients_SkipsWhenAnyExists(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateIngredient(t, db, "соль", "г")
	repo := repository.NewIngredientRepository(db, nil)

	n, err := LoadIngredients(context.Background(), repo, []byte(`[{"name":"перец","measurement_unit":"г"}]`))
	require.NoError(t, err)
	assert.Zero(t, n)

	var total int64
	require.NoError(t, db.Model(&models.Ingredient{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)
}

func TestLoadIngredients_RejectsBadInput(t *testing.T) {
	repo := repository.NewIngredientRepository(testutil.NewTestDB(t), nil)
	ctx := context.Background()

	_, err := LoadIngredients(ctx, repo, []byte(`not json`))
	assert.Error(t, err)

	_, err = LoadIngredients(ctx, repo, []byte(`[{"name":"","measurement_unit":"г"}]`))
	assert.Error(t, err)
}

func TestLoadTags_UpsertBySlug(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewTagRepository(db, nil)
	ctx := context.Background()

	first := []byte("- name: Завтрак\n  color: \"#E26C2D\"\n  slug: breakfast\n")
	n, err := LoadTags(ctx, repo, first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second := []byte("- name: Утро\n  color: \"#000000\"\n  slug: breakfast\n- name: Ужин\n  color: \"#8775D2\"\n  slug: dinner\n")
	_, err = LoadTags(ctx, repo, second)
	require.NoError(t, err)

	tags, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)
	assert.Equal(t, "Утро", tags[0].Name)
	assert.Equal(t, "#000000", tags[0].Color)
	assert.Equal(t, "dinner", tags[1].Slug)
}

func TestLoadTags_Validation(t *testing.T) {
	repo := repository.NewTagRepository(testutil.NewTestDB(t), nil)
	ctx := context.Background()

	for name, raw := range map[string]string{
		"bad yaml":  "- name: [",
		"no slug":   "- name: A\n  color: \"#FFFFFF\"\n",
		"bad color": "- name: A\n  color: red\n  slug: a\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTags(ctx, repo, []byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestReadDataFile(t *testing.T) {
	dir := t.TempDir()
	custom := []byte(`[{"name":"мука","measurement_unit":"г"}]`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, IngredientsFile), custom, 0o600))

	raw, err := ReadDataFile(dir, IngredientsFile)
	require.NoError(t, err)
	assert.Equal(t, custom, raw)

	// Missing file falls back to the embedded tags.
	raw, err = ReadDataFile(dir, TagsFile)
	require.NoError(t, err)
	assert.Equal(t, defaultTags, raw)

	_, err = ReadDataFile("", "unknown.csv")
	assert.Error(t, err)
}

func TestReferenceData_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ingredients := repository.NewIngredientRepository(db, nil)
	tags := repository.NewTagRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, ReferenceData(ctx, ingredients, tags, ""))
	require.NoError(t, ReferenceData(ctx, ingredients, tags, ""))

	list, err := tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func mustRecords(t *testing.T, raw []byte) []ingredientRecord {
	t.Helper()
	var out []ingredientRecord
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
