package service

import (
	"context"
	"strings"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"
)

type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository) *UserService {
	return &UserService{users: users, follows: follows}
}

// List returns one page of users with is_subscribed relative to callerID.
func (s *UserService) List(ctx context.Context, callerID uint, limit, offset int) ([]models.UserView, int64, error) {
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	followed, err := s.follows.FollowedAmong(ctx, callerID, ids)
	if err != nil {
		return nil, 0, err
	}
	views := make([]models.UserView, len(users))
	for i, u := range users {
		views[i] = models.NewUserView(u, followed[u.ID])
	}
	return views, total, nil
}

// Get returns one user as seen by callerID.
func (s *UserService) Get(ctx context.Context, callerID, id uint) (*models.UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed := false
	if callerID != 0 && callerID != id {
		if subscribed, err = s.follows.Exists(ctx, id, callerID); err != nil {
			return nil, err
		}
	}
	view := models.NewUserView(*user, subscribed)
	return &view, nil
}

// IsAdmin reports whether id belongs to an administrator. Unknown ids are not.
func (s *UserService) IsAdmin(ctx context.Context, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// SetAdmin grants or revokes administrator rights by email.
func (s *UserService) SetAdmin(ctx context.Context, email string, admin bool) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if err := s.users.SetAdmin(ctx, user.ID, admin); err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	middleware.Logger.InfoContext(ctx, "admin flag changed", "user_id", user.ID, "is_admin", admin)
	return user, nil
}

func (s *UserService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.users.ListAdmins(ctx)
}
