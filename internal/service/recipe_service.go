package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/permissions"
	"foodgram/internal/repository"
	"foodgram/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MsgUnknownPK is reported for tag or ingredient ids that do not exist.
const MsgUnknownPK = "Недопустимый первичный ключ \"%d\" - объект не существует."

// Recipe write actions, used as metric labels.
const (
	actionCreate = "create"
	actionUpdate = "update"
	actionDelete = "delete"
)

type IngredientInput struct {
	ID     uint `json:"id" validate:"required"`
	Amount *int `json:"amount" validate:"required,min=1"`
}

// RecipeInput is the full create or replace payload.
type RecipeInput struct {
	Ingredients []IngredientInput `json:"ingredients" validate:"required,min=1,dive"`
	Tags        []uint            `json:"tags" validate:"required,min=1"`
	Image       string            `json:"image"`
	Name        string            `json:"name" validate:"required,notblank,max=200"`
	Text        string            `json:"text" validate:"required,notblank"`
	CookingTime *int              `json:"cooking_time" validate:"required,min=1"`
}

// RecipeServiceDeps wires RecipeService.
type RecipeServiceDeps struct {
	Recipes     repository.RecipeRepository
	Tags        repository.TagRepository
	Ingredients repository.IngredientRepository
	Favorites   repository.MembershipRepository
	Cart        repository.MembershipRepository
	Follows     repository.FollowRepository
	Users       repository.UserRepository
	Images      ImageStore
	Events      EventPublisher
	Flags       FlagChecker
}

// RecipeService runs the recipe write transaction and builds caller-relative views.
type RecipeService struct {
	recipes     repository.RecipeRepository
	tags        repository.TagRepository
	ingredients repository.IngredientRepository
	favorites   repository.MembershipRepository
	cart        repository.MembershipRepository
	follows     repository.FollowRepository
	users       repository.UserRepository
	images      ImageStore
	events      EventPublisher
	flags       FlagChecker
}

func NewRecipeService(deps RecipeServiceDeps) *RecipeService {
	return &RecipeService{
		recipes:     deps.Recipes,
		tags:        deps.Tags,
		ingredients: deps.Ingredients,
		favorites:   deps.Favorites,
		cart:        deps.Cart,
		follows:     deps.Follows,
		users:       deps.Users,
		images:      deps.Images,
		events:      deps.Events,
		flags:       deps.Flags,
	}
}

// Create persists a recipe with its tags and line items for callerID.
func (s *RecipeService) Create(ctx context.Context, callerID uint, in RecipeInput) (*models.RecipeView, error) {
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, "RecipeService", "Create")
	defer span.End()

	view, err := s.create(ctx, callerID, in)
	if err != nil {
		s.recordFailure(span, actionCreate, err)
		return nil, err
	}
	observability.RecipeWrites.WithLabelValues(actionCreate).Inc()
	return view, nil
}

func (s *RecipeService) create(ctx context.Context, callerID uint, in RecipeInput) (*models.RecipeView, error) {
	req, err := s.request(ctx, "POST", callerID)
	if err != nil {
		return nil, err
	}
	if err := permissions.RecipePolicy.CheckRequest(req); err != nil {
		return nil, err
	}

	tagIDs, items, err := s.prepare(ctx, in, true)
	if err != nil {
		return nil, err
	}

	rel, err := s.images.Save(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	recipe := &models.Recipe{
		AuthorID:    callerID,
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		Image:       rel,
		CookingTime: *in.CookingTime,
	}
	if err := s.recipes.CreateWithItems(ctx, recipe, tagIDs, items); err != nil {
		s.images.Delete(rel)
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "recipe created",
		"recipe_id", recipe.ID,
		"author_id", callerID,
		"tags", len(tagIDs),
		"ingredients", len(items),
	)
	s.notifyFollowers(ctx, recipe)
	return s.Get(ctx, callerID, recipe.ID)
}

// Update replaces the recipe's fields, tags and line items. An empty image,
// or the image's current URL, keeps the stored image.
func (s *RecipeService) Update(ctx context.Context, callerID, recipeID uint, in RecipeInput) (*models.RecipeView, error) {
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, "RecipeService", "Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipe.id", int64(recipeID)))

	view, err := s.update(ctx, callerID, recipeID, in)
	if err != nil {
		s.recordFailure(span, actionUpdate, err)
		return nil, err
	}
	observability.RecipeWrites.WithLabelValues(actionUpdate).Inc()
	return view, nil
}

func (s *RecipeService) update(ctx context.Context, callerID, recipeID uint, in RecipeInput) (*models.RecipeView, error) {
	current, err := s.authorize(ctx, "PATCH", callerID, recipeID)
	if err != nil {
		return nil, err
	}

	tagIDs, items, err := s.prepare(ctx, in, false)
	if err != nil {
		return nil, err
	}

	rel := current.Image
	replaced := false
	if image := strings.TrimSpace(in.Image); image != "" && image != current.Image && image != s.images.URL(ctx, current.Image) {
		if rel, err = s.images.Save(ctx, image); err != nil {
			return nil, err
		}
		replaced = true
	}

	recipe := &models.Recipe{
		ID:          recipeID,
		AuthorID:    current.AuthorID,
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		Image:       rel,
		CookingTime: *in.CookingTime,
	}
	if err := s.recipes.ReplaceWithItems(ctx, recipe, tagIDs, items); err != nil {
		if replaced {
			s.images.Delete(rel)
		}
		return nil, err
	}
	if replaced {
		s.images.Delete(current.Image)
	}

	middleware.Logger.InfoContext(ctx, "recipe updated", "recipe_id", recipeID, "caller_id", callerID)
	return s.Get(ctx, callerID, recipeID)
}

// Delete removes the recipe, its dependent rows and its image files.
func (s *RecipeService) Delete(ctx context.Context, callerID, recipeID uint) error {
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, "RecipeService", "Delete")
	defer span.End()

	current, err := s.authorize(ctx, "DELETE", callerID, recipeID)
	if err == nil {
		err = s.recipes.Delete(ctx, recipeID)
	}
	if err != nil {
		s.recordFailure(span, actionDelete, err)
		return err
	}
	s.images.Delete(current.Image)
	observability.RecipeWrites.WithLabelValues(actionDelete).Inc()
	middleware.Logger.InfoContext(ctx, "recipe deleted", "recipe_id", recipeID, "caller_id", callerID)
	return nil
}

// Get returns the full recipe as seen by callerID.
func (s *RecipeService) Get(ctx context.Context, callerID, recipeID uint) (*models.RecipeView, error) {
	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, callerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns one filtered page of recipes, newest first.
func (s *RecipeService) List(ctx context.Context, callerID uint, params map[string][]string, limit, offset int) ([]models.RecipeView, int64, error) {
	recipes, total, err := s.recipes.List(ctx, params, callerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, callerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// ShortView projects a recipe for toggles and author listings.
func (s *RecipeService) ShortView(ctx context.Context, r models.Recipe) models.ShortRecipe {
	return shortRecipe(ctx, s.images, r)
}

func shortRecipe(ctx context.Context, images ImageStore, r models.Recipe) models.ShortRecipe {
	return models.ShortRecipe{
		ID:          r.ID,
		Name:        r.Name,
		Image:       images.URL(ctx, r.Image),
		CookingTime: r.CookingTime,
	}
}

// request describes callerID for the permission predicates.
func (s *RecipeService) request(ctx context.Context, method string, callerID uint) (permissions.Request, error) {
	req := permissions.Request{Method: method, UserID: callerID}
	if callerID == 0 {
		return req, nil
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return permissions.Request{Method: method}, nil
		}
		return req, err
	}
	req.IsAdmin = caller.IsAdmin
	return req, nil
}

// authorize loads the recipe and checks the caller may modify it.
func (s *RecipeService) authorize(ctx context.Context, method string, callerID, recipeID uint) (*models.Recipe, error) {
	req, err := s.request(ctx, method, callerID)
	if err != nil {
		return nil, err
	}
	if err := permissions.RecipePolicy.CheckRequest(req); err != nil {
		return nil, err
	}
	current, err := s.recipes.GetShort(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := permissions.RecipePolicy.CheckObject(req, current); err != nil {
		return nil, err
	}
	return current, nil
}

// prepare validates the payload and resolves it into tag ids and line items.
// Nothing is written before every reference is known to exist.
func (s *RecipeService) prepare(ctx context.Context, in RecipeInput, requireImage bool) ([]uint, []models.RecipeIngredient, error) {
	if err := validateRecipeInput(in, requireImage); err != nil {
		return nil, nil, err
	}

	seen := make(map[uint]struct{}, len(in.Ingredients))
	for _, item := range in.Ingredients {
		if _, dup := seen[item.ID]; dup {
			return nil, nil, models.NewDuplicateIngredientError()
		}
		seen[item.ID] = struct{}{}
	}

	tagIDs := uniqueIDs(in.Tags)
	tags, err := s.tags.FindByIDs(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if missing, ok := firstMissing(tagIDs, len(tags), func(i int) uint { return tags[i].ID }); ok {
		return nil, nil, models.NewFieldValidationError(map[string]string{"tags": fmt.Sprintf(MsgUnknownPK, missing)})
	}

	ingredientIDs := make([]uint, len(in.Ingredients))
	for i, item := range in.Ingredients {
		ingredientIDs[i] = item.ID
	}
	found, err := s.ingredients.FindByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[uint]struct{}, len(found))
	for _, ing := range found {
		known[ing.ID] = struct{}{}
	}
	items := make([]models.RecipeIngredient, len(in.Ingredients))
	for i, item := range in.Ingredients {
		if _, ok := known[item.ID]; !ok {
			return nil, nil, models.NewFieldValidationError(map[string]string{
				fmt.Sprintf("ingredients[%d].id", i): fmt.Sprintf(MsgUnknownPK, item.ID),
			})
		}
		items[i] = models.RecipeIngredient{IngredientID: item.ID, Amount: *item.Amount}
	}
	return tagIDs, items, nil
}

// validateRecipeInput reports every missing or out-of-range field at once.
func validateRecipeInput(in RecipeInput, requireImage bool) error {
	fields := map[string]string{}
	if err := validation.Validate(in); err != nil {
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			return err
		}
		for k, v := range appErr.Fields {
			fields[k] = v
		}
	}
	if requireImage && strings.TrimSpace(in.Image) == "" {
		fields["image"] = validation.RequiredMessage("image")
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// firstMissing returns the first of want not present among the n found ids.
func firstMissing(want []uint, n int, found func(int) uint) (uint, bool) {
	have := make(map[uint]struct{}, n)
	for i := 0; i < n; i++ {
		have[found(i)] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

// views builds caller-relative representations with three batched lookups.
func (s *RecipeService) views(ctx context.Context, callerID uint, recipes []models.Recipe) ([]models.RecipeView, error) {
	ids := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authorIDs = append(authorIDs, r.AuthorID)
	}

	flags := models.RecipeFlags{}
	var err error
	if flags.Favorited, err = s.favorites.RecipeIDsAmong(ctx, callerID, ids); err != nil {
		return nil, err
	}
	if flags.InCart, err = s.cart.RecipeIDsAmong(ctx, callerID, ids); err != nil {
		return nil, err
	}
	if flags.Subscribed, err = s.follows.FollowedAmong(ctx, callerID, uniqueIDs(authorIDs)); err != nil {
		return nil, err
	}

	views := make([]models.RecipeView, len(recipes))
	for i, r := range recipes {
		views[i] = s.view(ctx, r, flags)
	}
	return views, nil
}

func (s *RecipeService) view(ctx context.Context, r models.Recipe, flags models.RecipeFlags) models.RecipeView {
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	ingredients := make([]models.IngredientAmount, len(r.Ingredients))
	for i, item := range r.Ingredients {
		ingredients[i] = models.IngredientAmount{
			ID:              item.IngredientID,
			Name:            item.Ingredient.Name,
			MeasurementUnit: item.Ingredient.MeasurementUnit,
			Amount:          item.Amount,
		}
	}
	return models.RecipeView{
		ID:               r.ID,
		Tags:             tags,
		Author:           models.NewUserView(r.Author, flags.Subscribed[r.AuthorID]),
		Ingredients:      ingredients,
		IsFavorited:      flags.Favorited[r.ID],
		IsInShoppingCart: flags.InCart[r.ID],
		Name:             r.Name,
		Image:            s.images.URL(ctx, r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

// notifyFollowers fans a recipe_created event out to the author's followers.
func (s *RecipeService) notifyFollowers(ctx context.Context, recipe *models.Recipe) {
	if s.events == nil || s.flags == nil || !s.flags.Enabled(FlagFollowerNotifications, recipe.AuthorID) {
		return
	}
	followers, err := s.follows.FollowerIDs(ctx, recipe.AuthorID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "follower lookup failed", "author_id", recipe.AuthorID, "error", err)
		return
	}
	author := ""
	if u, err := s.users.GetByID(ctx, recipe.AuthorID); err == nil {
		author = u.Username
	}
	publish(ctx, s.events, followers, EventRecipeCreated, RecipeCreatedPayload{
		Recipe:   shortRecipe(ctx, s.images, *recipe),
		AuthorID: recipe.AuthorID,
		Author:   author,
	})
}

func (s *RecipeService) recordFailure(span trace.Span, action string, err error) {
	code := models.CodeInternal
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	observability.RecipeWriteFailures.WithLabelValues(action, code).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
}
