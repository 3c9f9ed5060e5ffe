package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// imageStoreStub records saves and deletes without touching disk.
type imageStoreStub struct {
	mu      sync.Mutex
	n       int
	saved   []string
	deleted []string
	saveErr error
}

func (s *imageStoreStub) Save(_ context.Context, encoded string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.n++
	rel := fmt.Sprintf("recipes/stub-%d.jpg", s.n)
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *imageStoreStub) Delete(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, rel)
}

func (s *imageStoreStub) URL(_ context.Context, rel string) string {
	if rel == "" {
		return ""
	}
	return "http://testserver/media/" + rel
}

type publishedEvent struct {
	userIDs   []uint
	eventType string
	payload   interface{}
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *publisherStub) PublishToUsers(_ context.Context, userIDs []uint, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userIDs: userIDs, eventType: eventType, payload: payload})
}

type flagsStub map[string]bool

func (f flagsStub) Enabled(name string, _ uint) bool { return f[name] }

type revokerStub struct {
	jti string
	ttl time.Duration
}

func (r *revokerStub) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.jti, r.ttl = jti, ttl
	return nil
}

// fixture wires every service over one sqlite database.
type fixture struct {
	db        *gorm.DB
	images    *imageStoreStub
	events    *publisherStub
	recipes   repository.RecipeRepository
	recipe    *RecipeService
	favorites *MembershipService
	cart      *MembershipService
	follow    *FollowService
	users     *UserService
	shopping  *ShoppingListService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	f := &fixture{db: db, images: &imageStoreStub{}, events: &publisherStub{}}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	favRepo := repository.NewFavoriteRepository(db)
	cartRepo := repository.NewShoppingCartRepository(db)
	f.recipes = repository.NewRecipeRepository(db)

	f.recipe = NewRecipeService(RecipeServiceDeps{
		Recipes:     f.recipes,
		Tags:        repository.NewTagRepository(db, nil),
		Ingredients: repository.NewIngredientRepository(db, nil),
		Favorites:   favRepo,
		Cart:        cartRepo,
		Follows:     followRepo,
		Users:       userRepo,
		Images:      f.images,
		Events:      f.events,
		Flags:       flagsStub{FlagFollowerNotifications: true},
	})
	f.favorites = NewMembershipService(ListFavorites, favRepo, f.recipes, f.images)
	f.cart = NewMembershipService(ListShoppingCart, cartRepo, f.recipes, f.images)
	f.follow = NewFollowService(followRepo, userRepo, f.recipes, f.images, f.events)
	f.users = NewUserService(userRepo, followRepo)
	f.shopping = NewShoppingListService(f.recipes, &rendererStub{})
	return f
}

func (f *fixture) makeAdmin(t *testing.T, u *models.User) {
	t.Helper()
	require.NoError(t, f.db.Model(u).Update("is_admin", true).Error)
}

func (f *fixture) count(t *testing.T, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

type rendererStub struct {
	lines []string
	err   error
}

func (r *rendererStub) Render(lines []string) ([]byte, error) {
	r.lines = lines
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-stub"), nil
}

func intPtr(v int) *int { return &v }

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}
