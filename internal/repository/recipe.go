package repository

import (
	"context"
	"errors"

	"foodgram/internal/models"
	"foodgram/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository persists recipes together with their tags and line items.
type RecipeRepository interface {
	CreateWithItems(ctx context.Context, recipe *models.Recipe, tagIDs []uint, items []models.RecipeIngredient) error
	ReplaceWithItems(ctx context.Context, recipe *models.Recipe, tagIDs []uint, items []models.RecipeIngredient) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	GetShort(ctx context.Context, id uint) (*models.Recipe, error)
	List(ctx context.Context, params map[string][]string, callerID uint, limit, offset int) ([]models.Recipe, int64, error)
	ShortByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error)
	CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	ShoppingTotals(ctx context.Context, userID uint) ([]models.IngredientTotal, error)
}

// recipeTag is a row of the recipe/tag join table.
type recipeTag struct {
	RecipeID uint
	TagID    uint
}

func (recipeTag) TableName() string {
	return "recipe_tags"
}

type recipeRepository struct {
	db  *gorm.DB
	log observability.RepoLogger
}

// NewRecipeRepository returns a RecipeRepository.
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db, log: observability.NewRepoLogger("recipes")}
}

// CreateWithItems inserts the recipe, its tag links and its line items in one
// transaction. Nothing is committed if any insert fails.
func (r *recipeRepository) CreateWithItems(ctx context.Context, recipe *models.Recipe, tagIDs []uint, items []models.RecipeIngredient) (err error) {
	ctx, done := observability.StartQuery(ctx, "create", "recipes")
	defer func() { done(err) }()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		if err := insertTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return insertItems(tx, recipe.ID, items)
	})
	if err != nil {
		r.log.Fail(ctx, "create", err)
		return writeError(err)
	}
	r.log.Write(ctx, "create", "recipe_id", recipe.ID, "author_id", recipe.AuthorID, "items", len(items))
	return nil
}

// ReplaceWithItems overwrites the scalar fields and swaps the full tag and
// line item sets in one transaction. The old rows survive any failure.
func (r *recipeRepository) ReplaceWithItems(ctx context.Context, recipe *models.Recipe, tagIDs []uint, items []models.RecipeIngredient) (err error) {
	ctx, done := observability.StartQuery(ctx, "update", "recipes")
	defer func() { done(err) }()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Updates(map[string]interface{}{
			"name":         recipe.Name,
			"text":         recipe.Text,
			"image":        recipe.Image,
			"cooking_time": recipe.CookingTime,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&recipeTag{}).Error; err != nil {
			return err
		}
		if err := insertTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return insertItems(tx, recipe.ID, items)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Recipe", recipe.ID)
		}
		r.log.Fail(ctx, "update", err)
		return writeError(err)
	}
	r.log.Write(ctx, "update", "recipe_id", recipe.ID, "items", len(items))
	return nil
}

func insertTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]recipeTag, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = recipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&rows).Error
}

func insertItems(tx *gorm.DB, recipeID uint, items []models.RecipeIngredient) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, len(items))
	for i, it := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: it.IngredientID, Amount: it.Amount}
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

// writeError maps a failed recipe write. A unique violation can only come
// from a repeated (recipe, ingredient) pair.
func writeError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isUniqueConstraintError(err) {
		return models.NewDuplicateIngredientError()
	}
	return models.NewInternalError(err)
}

// Delete removes the recipe with its tag links, line items and memberships.
func (r *recipeRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&models.RecipeIngredient{}, &recipeTag{}, &models.FavoriteRecipe{}, &models.ShopRecipe{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Recipe", id)
		}
		r.log.Fail(ctx, "delete", err)
		return models.NewInternalError(err)
	}
	r.log.Write(ctx, "delete", "recipe_id", id)
	return nil
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.id")
		}).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("amount").Order("ingredient_id")
		}).
		Preload("Ingredients.Ingredient")
}

// GetByID loads the recipe with author, tags and line items.
func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(r.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, lookupError(err, "Recipe", id)
	}
	return &recipe, nil
}

// GetShort loads only the recipe row.
func (r *recipeRepository) GetShort(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, lookupError(err, "Recipe", id)
	}
	return &recipe, nil
}

// List returns one page of recipes, newest first, narrowed by RecipeFilters.
func (r *recipeRepository) List(ctx context.Context, params map[string][]string, callerID uint, limit, offset int) (_ []models.Recipe, _ int64, err error) {
	ctx, done := observability.StartQuery(ctx, "list", "recipes")
	defer func() { done(err) }()
	q, err := ApplyRecipeFilters(r.db.WithContext(ctx).Model(&models.Recipe{}), params, callerID)
	if err != nil {
		return nil, 0, err
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	recipes := []models.Recipe{}
	if total == 0 {
		return recipes, 0, nil
	}
	err = withDetails(q).
		Order("recipes.created_at DESC").
		Order("recipes.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return recipes, total, nil
}

// ShortByAuthor returns the author's recipes newest first. limit <= 0 means all.
func (r *recipeRepository) ShortByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	recipes := []models.Recipe{}
	q := r.db.WithContext(ctx).
		Select("id", "name", "image", "cooking_time", "author_id", "created_at").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recipes, nil
}

// CountByAuthors returns recipe counts keyed by author. Authors without
// recipes are absent from the map.
func (r *recipeRepository) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}
	return counts, nil
}

// ShoppingTotals sums line item amounts per ingredient over every recipe in
// the user's cart, ordered by ingredient name.
func (r *recipeRepository) ShoppingTotals(ctx context.Context, userID uint) (_ []models.IngredientTotal, err error) {
	ctx, done := observability.StartQuery(ctx, "aggregate", "recipe_ingredients")
	defer func() { done(err) }()
	totals := []models.IngredientTotal{}
	err = r.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.id AS ingredient_id, i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS total").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shop_recipes s ON s.recipe_id = ri.recipe_id").
		Where("s.user_id = ?", userID).
		Group("i.id, i.name, i.measurement_unit").
		Order("i.name").
		Order("i.id").
		Scan(&totals).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return totals, nil
}
