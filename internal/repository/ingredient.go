package repository

import (
	"context"
	"strings"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const ingredientBatchSize = 500

// IngredientRepository reads ingredients and bulk-loads them.
type IngredientRepository interface {
	Search(ctx context.Context, prefix string) ([]models.Ingredient, error)
	GetByID(ctx context.Context, id uint) (*models.Ingredient, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error)
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, items []models.Ingredient) error
}

type ingredientRepository struct {
	db  *gorm.DB
	rdb *redis.Client
	log observability.RepoLogger
}

// NewIngredientRepository returns an IngredientRepository. rdb may be nil.
func NewIngredientRepository(db *gorm.DB, rdb *redis.Client) IngredientRepository {
	return &ingredientRepository{db: db, rdb: rdb, log: observability.NewRepoLogger("ingredients")}
}

// Search matches names starting with prefix, case-insensitively, ordered by name.
// An empty prefix returns every ingredient.
func (r *ingredientRepository) Search(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	items := []models.Ingredient{}
	err := cache.Aside(ctx, r.rdb, cache.IngredientSearchCacheKey(prefix), &items, cache.IngredientTTL, func() (err error) {
		ctx, done := observability.StartQuery(ctx, "search", "ingredients")
		defer func() { done(err) }()
		q := r.db.WithContext(ctx).Order("name").Order("id")
		// sqlite LOWER only folds ASCII, so non-ASCII names are matched here.
		foldInGo := prefix != "" && r.db.Dialector.Name() == "sqlite"
		if prefix != "" && !foldInGo {
			q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
		}
		if err := q.Find(&items).Error; err != nil {
			return models.NewInternalError(err)
		}
		if foldInGo {
			items = filterByPrefix(items, prefix)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// filterByPrefix keeps items whose lower-cased name starts with prefix.
func filterByPrefix(items []models.Ingredient, prefix string) []models.Ingredient {
	out := items[:0]
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Name), prefix) {
			out = append(out, it)
		}
	}
	return out
}

func (r *ingredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var item models.Ingredient
	err := cache.Aside(ctx, r.rdb, cache.IngredientKey(id), &item, cache.IngredientTTL, func() error {
		if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
			return lookupError(err, "Ingredient", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDs returns the ingredients that exist among ids.
func (r *ingredientRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	items := []models.Ingredient{}
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *ingredientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Ingredient{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *ingredientRepository) CreateBatch(ctx context.Context, items []models.Ingredient) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&items, ingredientBatchSize).Error; err != nil {
		r.log.Fail(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Write(ctx, "create", "count", len(items))
	if err := cache.InvalidatePattern(ctx, r.rdb, "ingredients:*"); err != nil {
		r.log.Fail(ctx, "invalidate", err)
	}
	return nil
}
