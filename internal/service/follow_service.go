package service

import (
	"context"
	"strconv"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/permissions"
	"foodgram/internal/repository"
)

// MsgInvalidRecipesLimit is reported for a non-positive or non-numeric recipes_limit.
const MsgInvalidRecipesLimit = "Убедитесь, что это значение больше либо равно 1."

// FollowService manages the follow graph and subscription listings.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	recipes repository.RecipeRepository
	images  ImageStore
	events  EventPublisher
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, recipes repository.RecipeRepository, images ImageStore, events EventPublisher) *FollowService {
	return &FollowService{follows: follows, users: users, recipes: recipes, images: images, events: events}
}

// ParseRecipesLimit reads the recipes_limit query value. Empty means no limit (0).
func ParseRecipesLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewFieldValidationError(map[string]string{"recipes_limit": "Введите целое число."})
	}
	if n < 1 {
		return 0, models.NewFieldValidationError(map[string]string{"recipes_limit": MsgInvalidRecipesLimit})
	}
	return n, nil
}

// Subscribe makes followerID follow authorID and returns the author with recipes.
func (s *FollowService) Subscribe(ctx context.Context, followerID, authorID uint, recipesLimit int) (*models.AuthorWithRecipes, error) {
	if err := permissions.AuthenticatedOnly.CheckRequest(permissions.Request{Method: "POST", UserID: followerID}); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if err := s.follows.Create(ctx, authorID, followerID); err != nil {
		return nil, err
	}
	observability.FollowToggles.WithLabelValues("subscribe").Inc()
	middleware.Logger.InfoContext(ctx, "subscribed", "author_id", authorID, "follower_id", followerID)

	if follower, err := s.users.GetByID(ctx, followerID); err == nil {
		publish(ctx, s.events, []uint{authorID}, EventNewFollower, NewFollowerPayload{
			FollowerID: followerID,
			Username:   follower.Username,
		})
	}

	views, err := s.withRecipes(ctx, []models.User{*author}, map[uint]bool{authorID: true}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unsubscribe removes the edge.
func (s *FollowService) Unsubscribe(ctx context.Context, followerID, authorID uint) error {
	if err := permissions.AuthenticatedOnly.CheckRequest(permissions.Request{Method: "DELETE", UserID: followerID}); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		return err
	}
	if err := s.follows.Delete(ctx, authorID, followerID); err != nil {
		return err
	}
	observability.FollowToggles.WithLabelValues("unsubscribe").Inc()
	middleware.Logger.InfoContext(ctx, "unsubscribed", "author_id", authorID, "follower_id", followerID)
	return nil
}

// Subscriptions returns one page of authors followed by followerID.
func (s *FollowService) Subscriptions(ctx context.Context, followerID uint, limit, offset, recipesLimit int) ([]models.AuthorWithRecipes, int64, error) {
	if err := permissions.AuthenticatedOnly.CheckRequest(permissions.Request{Method: "GET", UserID: followerID}); err != nil {
		return nil, 0, err
	}
	authors, total, err := s.follows.AuthorsFollowedBy(ctx, followerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	subscribed := make(map[uint]bool, len(authors))
	for _, a := range authors {
		subscribed[a.ID] = true
	}
	views, err := s.withRecipes(ctx, authors, subscribed, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// withRecipes annotates authors with their recipe counts and newest recipes.
func (s *FollowService) withRecipes(ctx context.Context, authors []models.User, subscribed map[uint]bool, recipesLimit int) ([]models.AuthorWithRecipes, error) {
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	counts, err := s.recipes.CountByAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.AuthorWithRecipes, len(authors))
	for i, a := range authors {
		recipes, err := s.recipes.ShortByAuthor(ctx, a.ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		shorts := make([]models.ShortRecipe, len(recipes))
		for j, r := range recipes {
			shorts[j] = shortRecipe(ctx, s.images, r)
		}
		out[i] = models.AuthorWithRecipes{
			UserView:     models.NewUserView(a, subscribed[a.ID]),
			Recipes:      shorts,
			RecipesCount: counts[a.ID],
		}
	}
	return out, nil
}
