package database

import "foodgram/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate on databases without deferred constraints.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Follow{},
		&models.FavoriteRecipe{},
		&models.ShopRecipe{},
	}
}
