package models

import (
	"time"
)

// FavoriteRecipe marks a recipe as a favorite of a user.
type FavoriteRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (FavoriteRecipe) TableName() string {
	return "favorite_recipes"
}

// SetPair fills the (user, recipe) key.
func (f *FavoriteRecipe) SetPair(userID, recipeID uint) {
	f.UserID = userID
	f.RecipeID = recipeID
}

// ShopRecipe puts a recipe into a user's shopping cart.
type ShopRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_shop_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_shop_user_recipe;index" json:"recipe_id"`
	CreatedAt time.Time `json:"created_at"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (ShopRecipe) TableName() string {
	return "shop_recipes"
}

// SetPair fills the (user, recipe) key.
func (s *ShopRecipe) SetPair(userID, recipeID uint) {
	s.UserID = userID
	s.RecipeID = recipeID
}
