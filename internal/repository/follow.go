package repository

import (
	"context"

	"foodgram/internal/models"
	"foodgram/internal/observability"

	"gorm.io/gorm"
)

// FollowRepository stores directed author/follower edges.
type FollowRepository interface {
	Create(ctx context.Context, authorID, followerID uint) error
	Delete(ctx context.Context, authorID, followerID uint) error
	Exists(ctx context.Context, authorID, followerID uint) (bool, error)
	AuthorsFollowedBy(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error)
	FollowedAmong(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error)
	FollowerIDs(ctx context.Context, authorID uint) ([]uint, error)
}

type followRepository struct {
	db  *gorm.DB
	log observability.RepoLogger
}

// NewFollowRepository returns a FollowRepository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follows")}
}

// Create adds the edge. A repeated edge yields an AlreadyFollowing error.
func (r *followRepository) Create(ctx context.Context, authorID, followerID uint) error {
	if authorID == followerID {
		return models.NewSelfFollowError()
	}
	edge := models.Follow{AuthorID: authorID, FollowerID: followerID}
	if err := r.db.WithContext(ctx).Omit("Author", "Follower").Create(&edge).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewAlreadyFollowingError()
		}
		r.log.Fail(ctx, "create", err)
		return models.NewInternalError(err)
	}
	r.log.Write(ctx, "create", "author_id", authorID, "follower_id", followerID)
	return nil
}

// Delete removes the edge. A missing edge yields a NotFollowing error.
func (r *followRepository) Delete(ctx context.Context, authorID, followerID uint) error {
	res := r.db.WithContext(ctx).
		Where("author_id = ? AND follower_id = ?", authorID, followerID).
		Delete(&models.Follow{})
	if res.Error != nil {
		r.log.Fail(ctx, "delete", res.Error)
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFollowingError()
	}
	r.log.Write(ctx, "delete", "author_id", authorID, "follower_id", followerID)
	return nil
}

func (r *followRepository) Exists(ctx context.Context, authorID, followerID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("author_id = ? AND follower_id = ?", authorID, followerID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// AuthorsFollowedBy returns one page of followed authors ordered by id, with the total.
func (r *followRepository) AuthorsFollowedBy(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?)", r.db.Model(&models.Follow{}).Select("author_id").Where("follower_id = ?", followerID)).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	users := []models.User{}
	if total == 0 {
		return users, 0, nil
	}
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}

// FollowedAmong reports which of authorIDs the follower follows.
func (r *followRepository) FollowedAmong(ctx context.Context, followerID uint, authorIDs []uint) (map[uint]bool, error) {
	followed := make(map[uint]bool, len(authorIDs))
	if followerID == 0 || len(authorIDs) == 0 {
		return followed, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND author_id IN ?", followerID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		followed[id] = true
	}
	return followed, nil
}

// FollowerIDs lists everyone following the author.
func (r *followRepository) FollowerIDs(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Order("follower_id").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
