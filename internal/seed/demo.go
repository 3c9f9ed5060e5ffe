package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated demo user.
const DemoPassword = "password123"

const (
	demoFollowsPerUser = 3
	demoListPerUser    = 2
	demoImageURL       = "https://picsum.photos/seed/%s/800/600"
)

// DemoOptions controls how much demo content is generated.
type DemoOptions struct {
	Users   int
	Recipes int
	// Seed makes generation repeatable. Zero uses the current time.
	Seed int64
}

// DemoResult counts what Demo created.
type DemoResult struct {
	Users     int
	Recipes   int
	Follows   int
	Favorites int
	CartItems int
}

type demoRepos struct {
	users       repository.UserRepository
	recipes     repository.RecipeRepository
	tags        repository.TagRepository
	ingredients repository.IngredientRepository
	follows     repository.FollowRepository
	favorites   repository.MembershipRepository
	cart        repository.MembershipRepository
}

// Demo fills the database with fake users, recipes and relations between
// them. Reference data must already be loaded.
func Demo(ctx context.Context, db *gorm.DB, opts DemoOptions) (DemoResult, error) {
	var res DemoResult
	if opts.Users <= 0 {
		return res, nil
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := gofakeit.New(seed)
	r := demoRepos{
		users:       repository.NewUserRepository(db),
		recipes:     repository.NewRecipeRepository(db),
		tags:        repository.NewTagRepository(db, nil),
		ingredients: repository.NewIngredientRepository(db, nil),
		follows:     repository.NewFollowRepository(db),
		favorites:   repository.NewFavoriteRepository(db),
		cart:        repository.NewShoppingCartRepository(db),
	}

	tags, err := r.tags.List(ctx)
	if err != nil {
		return res, err
	}
	ingredients, err := r.ingredients.Search(ctx, "")
	if err != nil {
		return res, err
	}
	if opts.Recipes > 0 && (len(tags) == 0 || len(ingredients) == 0) {
		return res, errors.New("demo recipes need tags and ingredients; load reference data first")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return res, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, created, err := demoUser(ctx, r.users, f, i+1, string(hash))
		if err != nil {
			return res, err
		}
		users = append(users, *u)
		if created {
			res.Users++
		}
	}

	recipeIDs := make([]uint, 0, opts.Recipes)
	for i := 0; i < opts.Recipes; i++ {
		author := users[i%len(users)]
		recipe, tagIDs, items := buildDemoRecipe(f, author.ID, tags, ingredients)
		if err := r.recipes.CreateWithItems(ctx, recipe, tagIDs, items); err != nil {
			return res, fmt.Errorf("create demo recipe: %w", err)
		}
		recipeIDs = append(recipeIDs, recipe.ID)
		res.Recipes++
	}

	for _, u := range users {
		for _, idx := range pick(f, len(users), demoFollowsPerUser) {
			if ok, err := ignoreConflict(r.follows.Create(ctx, users[idx].ID, u.ID)); err != nil {
				return res, err
			} else if ok {
				res.Follows++
			}
		}
		for _, idx := range pick(f, len(recipeIDs), demoListPerUser) {
			if ok, err := ignoreConflict(r.favorites.Add(ctx, u.ID, recipeIDs[idx])); err != nil {
				return res, err
			} else if ok {
				res.Favorites++
			}
		}
		for _, idx := range pick(f, len(recipeIDs), demoListPerUser) {
			if ok, err := ignoreConflict(r.cart.Add(ctx, u.ID, recipeIDs[idx])); err != nil {
				return res, err
			} else if ok {
				res.CartItems++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "demo data generated",
		"users", res.Users,
		"recipes", res.Recipes,
		"follows", res.Follows,
		"favorites", res.Favorites,
		"cart_items", res.CartItems,
	)
	return res, nil
}

// demoUser returns the n-th demo user, creating it when its email is free.
func demoUser(ctx context.Context, users repository.UserRepository, f *gofakeit.Faker, n int, hash string) (*models.User, bool, error) {
	email := fmt.Sprintf("demo%d@foodgram.local", n)
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	first, last := f.FirstName(), f.LastName()
	u := &models.User{
		Email:     email,
		Username:  fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), n),
		FirstName: first,
		LastName:  last,
		Password:  hash,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create demo user %s: %w", email, err)
	}
	return u, true, nil
}

func buildDemoRecipe(f *gofakeit.Faker, authorID uint, tags []models.Tag, ingredients []models.Ingredient) (*models.Recipe, []uint, []models.RecipeIngredient) {
	names := []func() string{f.Breakfast, f.Lunch, f.Dinner, f.Dessert, f.Snack}
	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        truncate(names[f.Number(0, len(names)-1)](), 200),
		Text:        f.Paragraph(2, 3, 12, "\n\n"),
		Image:       fmt.Sprintf(demoImageURL, f.UUID()),
		CookingTime: f.Number(5, 180),
	}

	var tagIDs []uint
	for _, idx := range pick(f, len(tags), f.Number(1, 2)) {
		tagIDs = append(tagIDs, tags[idx].ID)
	}
	var items []models.RecipeIngredient
	for _, idx := range pick(f, len(ingredients), f.Number(2, 6)) {
		items = append(items, models.RecipeIngredient{
			IngredientID: ingredients[idx].ID,
			Amount:       f.Number(1, 50) * 10,
		})
	}
	return recipe, tagIDs, items
}

// pick returns up to k distinct indexes in [0, n).
func pick(f *gofakeit.Faker, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := f.Number(i, n-1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// ignoreConflict reports whether a relation was created, treating the
// "already exists" and self-follow results as skips.
func ignoreConflict(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeAlreadyFollowing, models.CodeSelfFollow, models.CodeAlreadyInList:
			return false, nil
		}
	}
	return false, err
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
