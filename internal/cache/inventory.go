package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TagsKey             = "tags:all"
	TagKeyPrefix        = "tags:%d"
	IngredientKeyPrefix = "ingredients:%d"
	IngredientSearchKey = "ingredients:search:%s"
)

const (
	TagTTL        = 30 * time.Minute
	IngredientTTL = 10 * time.Minute
)

func TagKey(tagID uint) string {
	return fmt.Sprintf(TagKeyPrefix, tagID)
}

func IngredientKey(ingredientID uint) string {
	return fmt.Sprintf(IngredientKeyPrefix, ingredientID)
}

// IngredientSearchCacheKey keys a prefix search; the prefix is lowercased first.
func IngredientSearchCacheKey(prefix string) string {
	return fmt.Sprintf(IngredientSearchKey, strings.ToLower(prefix))
}

// InvalidatePattern deletes every key matching pattern using SCAN.
func InvalidatePattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}

// InvalidateReferenceData drops cached tags and ingredients after a reload.
func InvalidateReferenceData(ctx context.Context, rdb *redis.Client) error {
	if err := InvalidatePattern(ctx, rdb, "tags:*"); err != nil {
		return err
	}
	return InvalidatePattern(ctx, rdb, "ingredients:*")
}
