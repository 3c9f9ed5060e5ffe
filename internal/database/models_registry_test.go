package database

import (
	"testing"

	modelspkg "foodgram/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesMembershipTables(t *testing.T) {
	var favorites, cart bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.FavoriteRecipe:
			favorites = true
		case *modelspkg.ShopRecipe:
			cart = true
		}
	}
	require.True(t, favorites, "PersistentModels should include FavoriteRecipe")
	require.True(t, cart, "PersistentModels should include ShopRecipe")
}
