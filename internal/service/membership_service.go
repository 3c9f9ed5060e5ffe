package service

import (
	"context"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/permissions"
	"foodgram/internal/repository"
)

// Membership list names, used in logs and metric labels.
const (
	ListFavorites    = "favorites"
	ListShoppingCart = "shopping_cart"
)

// MembershipService toggles one kind of (user, recipe) membership.
// Favorites and the shopping cart use separate instances.
type MembershipService struct {
	list    string
	members repository.MembershipRepository
	recipes repository.RecipeRepository
	images  ImageStore
}

func NewMembershipService(list string, members repository.MembershipRepository, recipes repository.RecipeRepository, images ImageStore) *MembershipService {
	return &MembershipService{list: list, members: members, recipes: recipes, images: images}
}

// Add puts the recipe into the caller's list and returns its short form.
func (s *MembershipService) Add(ctx context.Context, userID, recipeID uint) (*models.ShortRecipe, error) {
	recipe, err := s.target(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.members.Add(ctx, userID, recipeID); err != nil {
		return nil, err
	}
	s.record(ctx, "add", userID, recipeID)
	short := shortRecipe(ctx, s.images, *recipe)
	return &short, nil
}

// Remove takes the recipe out of the caller's list.
func (s *MembershipService) Remove(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.target(ctx, userID, recipeID); err != nil {
		return err
	}
	if err := s.members.Remove(ctx, userID, recipeID); err != nil {
		return err
	}
	s.record(ctx, "remove", userID, recipeID)
	return nil
}

// target checks authentication first, then that the recipe exists.
func (s *MembershipService) target(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	if err := permissions.AuthenticatedOnly.CheckRequest(permissions.Request{Method: "POST", UserID: userID}); err != nil {
		return nil, err
	}
	return s.recipes.GetShort(ctx, recipeID)
}

func (s *MembershipService) record(ctx context.Context, action string, userID, recipeID uint) {
	observability.MembershipToggles.WithLabelValues(s.list, action).Inc()
	middleware.Logger.InfoContext(ctx, "membership toggled",
		"list", s.list,
		"action", action,
		"user_id", userID,
		"recipe_id", recipeID,
	)
}
