// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"foodgram/internal/database"
	"foodgram/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// NewTestDB opens an empty sqlite database with the full schema. The file
// lives in t.TempDir and is closed on cleanup.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "foodgram.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func next() uint64 {
	return seq.Add(1)
}

// CreateUser inserts a user with a unique username and email.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	n := next()
	u := &models.User{
		Email:     fmt.Sprintf("%s_%d@example.com", username, n),
		Username:  fmt.Sprintf("%s_%d", username, n),
		FirstName: "Test",
		LastName:  "User",
		Password:  "x",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateTag inserts a tag with the given slug.
func CreateTag(t testing.TB, db *gorm.DB, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: slug, Color: "#E26C2D", Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateIngredient inserts an ingredient.
func CreateIngredient(t testing.TB, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ing := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

// Item is a line item for CreateRecipe.
type Item struct {
	Ingredient *models.Ingredient
	Amount     int
}

// CreateRecipe inserts a recipe owned by author with the given tags and items.
func CreateRecipe(t testing.TB, db *gorm.DB, author *models.User, name string, tags []*models.Tag, items ...Item) *models.Recipe {
	t.Helper()
	r := &models.Recipe{
		AuthorID:    author.ID,
		Name:        name,
		Text:        "text of " + name,
		Image:       "recipes/" + name + ".jpg",
		CookingTime: 10,
	}
	require.NoError(t, db.Omit("Tags", "Ingredients", "Author").Create(r).Error)
	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", r.ID, tag.ID).Error)
	}
	for _, it := range items {
		require.NoError(t, db.Create(&models.RecipeIngredient{
			RecipeID:     r.ID,
			IngredientID: it.Ingredient.ID,
			Amount:       it.Amount,
		}).Error)
	}
	return r
}
