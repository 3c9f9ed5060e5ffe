package repository

import (
	"context"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository reads tags and reloads them from seed data.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	UpsertBySlug(ctx context.Context, tags []models.Tag) error
}

type tagRepository struct {
	db  *gorm.DB
	rdb *redis.Client
	log observability.RepoLogger
}

// NewTagRepository returns a TagRepository. rdb may be nil to disable caching.
func NewTagRepository(db *gorm.DB, rdb *redis.Client) TagRepository {
	return &tagRepository{db: db, rdb: rdb, log: observability.NewRepoLogger("tags")}
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := cache.Aside(ctx, r.rdb, cache.TagsKey, &tags, cache.TagTTL, func() error {
		if err := r.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := cache.Aside(ctx, r.rdb, cache.TagKey(id), &tag, cache.TagTTL, func() error {
		if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
			return lookupError(err, "Tag", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByIDs returns the tags that exist among ids, ordered by id.
func (r *tagRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	if len(ids) == 0 {
		return tags, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// UpsertBySlug inserts tags, updating name and color of existing slugs.
func (r *tagRepository) UpsertBySlug(ctx context.Context, tags []models.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "color"}),
	}).Create(&tags).Error
	if err != nil {
		r.log.Fail(ctx, "upsert", err)
		return models.NewInternalError(err)
	}
	r.log.Write(ctx, "upsert", "count", len(tags))
	if err := cache.InvalidatePattern(ctx, r.rdb, "tags:*"); err != nil {
		r.log.Fail(ctx, "invalidate", err)
	}
	return nil
}
