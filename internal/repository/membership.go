package repository

import (
	"context"

	"foodgram/internal/models"
	"foodgram/internal/observability"

	"gorm.io/gorm"
)

// MembershipRepository stores one kind of (user, recipe) membership.
type MembershipRepository interface {
	Add(ctx context.Context, userID, recipeID uint) error
	Remove(ctx context.Context, userID, recipeID uint) error
	Exists(ctx context.Context, userID, recipeID uint) (bool, error)
	RecipeIDsAmong(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error)
}

// membershipRow is implemented by pointers to membership models.
type membershipRow[T any] interface {
	*T
	SetPair(userID, recipeID uint)
}

type membershipRepository[T any, PT membershipRow[T]] struct {
	db  *gorm.DB
	log observability.RepoLogger
}

func newMembershipRepository[T any, PT membershipRow[T]](db *gorm.DB, table string) MembershipRepository {
	return &membershipRepository[T, PT]{db: db, log: observability.NewRepoLogger(table)}
}

// NewFavoriteRepository stores favorites.
func NewFavoriteRepository(db *gorm.DB) MembershipRepository {
	return newMembershipRepository[models.FavoriteRecipe](db, "favorite_recipes")
}

// NewShoppingCartRepository stores shopping cart entries.
func NewShoppingCartRepository(db *gorm.DB) MembershipRepository {
	return newMembershipRepository[models.ShopRecipe](db, "shop_recipes")
}

// Add inserts the pair. An existing pair yields an AlreadyInList error.
func (r *membershipRepository[T, PT]) Add(ctx context.Context, userID, recipeID uint) error {
	row := PT(new(T))
	row.SetPair(userID, recipeID)
	if err := r.db.WithContext(ctx).Omit("User", "Recipe").Create(row).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewAlreadyInListError()
		}
		r.log.Fail(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Write(ctx, "create", "user_id", userID, "recipe_id", recipeID)
	return nil
}

// Remove deletes the pair. A missing pair yields a NotInList error.
func (r *membershipRepository[T, PT]) Remove(ctx context.Context, userID, recipeID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(PT(new(T)))
	if res.Error != nil {
		r.log.Fail(ctx, "delete", res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotInListError()
	}
	r.log.Write(ctx, "delete", "user_id", userID, "recipe_id", recipeID)
	return nil
}

func (r *membershipRepository[T, PT]) Exists(ctx context.Context, userID, recipeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(PT(new(T))).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// RecipeIDsAmong reports which of recipeIDs the user holds.
func (r *membershipRepository[T, PT]) RecipeIDsAmong(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	held := make(map[uint]bool, len(recipeIDs))
	if userID == 0 || len(recipeIDs) == 0 {
		return held, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(PT(new(T))).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}
