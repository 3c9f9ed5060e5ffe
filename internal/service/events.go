package service

import (
	"context"

	"foodgram/internal/models"
)

// Realtime event types.
const (
	EventRecipeCreated = "recipe_created"
	EventNewFollower   = "new_follower"
)

// FlagFollowerNotifications gates recipe_created fan-out.
const FlagFollowerNotifications = "follower_notifications"

// EventPublisher delivers a realtime event to each user in userIDs.
// Delivery is best effort.
type EventPublisher interface {
	PublishToUsers(ctx context.Context, userIDs []uint, eventType string, payload interface{})
}

// FlagChecker evaluates feature flags for a user.
type FlagChecker interface {
	Enabled(name string, userID uint) bool
}

// RecipeCreatedPayload is sent to the author's followers.
type RecipeCreatedPayload struct {
	Recipe   models.ShortRecipe `json:"recipe"`
	AuthorID uint               `json:"author_id"`
	Author   string             `json:"author"`
}

// NewFollowerPayload is sent to the followed author.
type NewFollowerPayload struct {
	FollowerID uint   `json:"follower_id"`
	Username   string `json:"username"`
}

func publish(ctx context.Context, p EventPublisher, userIDs []uint, eventType string, payload interface{}) {
	if p == nil || len(userIDs) == 0 {
		return
	}
	p.PublishToUsers(ctx, userIDs, eventType, payload)
}
