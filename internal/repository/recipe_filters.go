package repository

import (
	"strconv"
	"strings"

	"foodgram/internal/models"

	"gorm.io/gorm"
)

// Filter messages.
const (
	MsgInvalidAuthor = "Введите целое число."
	MsgLoginRequired = "Необходима авторизация."
)

// RecipeFilter narrows a recipe query from one query parameter. Apply is only
// called when the parameter is present.
type RecipeFilter struct {
	Param string
	Apply func(q *gorm.DB, values []string, callerID uint) (*gorm.DB, error)
}

// RecipeFilters is applied in order. Parameters not listed here are ignored.
var RecipeFilters = []RecipeFilter{
	{Param: "author", Apply: filterByAuthor},
	{Param: "tags", Apply: filterByTags},
	{Param: "is_favorited", Apply: membershipFilter("favorite_recipes")},
	{Param: "is_in_shopping_cart", Apply: membershipFilter("shop_recipes")},
}

// ApplyRecipeFilters applies every RecipeFilters entry whose parameter is set.
func ApplyRecipeFilters(q *gorm.DB, params map[string][]string, callerID uint) (*gorm.DB, error) {
	for _, f := range RecipeFilters {
		values, ok := params[f.Param]
		if !ok || len(values) == 0 {
			continue
		}
		next, err := f.Apply(q, values, callerID)
		if err != nil {
			return nil, err
		}
		q = next
	}
	return q, nil
}

func filterByAuthor(q *gorm.DB, values []string, _ uint) (*gorm.DB, error) {
	raw := strings.TrimSpace(values[0])
	if raw == "" {
		return q, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, models.NewFieldValidationError(map[string]string{"author": MsgInvalidAuthor})
	}
	return q.Where("recipes.author_id = ?", id), nil
}

func filterByTags(q *gorm.DB, values []string, _ uint) (*gorm.DB, error) {
	slugs := make([]string, 0, len(values))
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				slugs = append(slugs, s)
			}
		}
	}
	if len(slugs) == 0 {
		return q, nil
	}
	return q.Where(`EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = recipes.id AND t.slug IN ?)`, slugs), nil
}

// membershipFilter keeps recipes the caller has in table. Only the value "1"
// filters; anonymous callers are refused.
func membershipFilter(table string) func(*gorm.DB, []string, uint) (*gorm.DB, error) {
	return func(q *gorm.DB, values []string, callerID uint) (*gorm.DB, error) {
		if strings.TrimSpace(values[0]) != "1" {
			return q, nil
		}
		if callerID == 0 {
			return nil, models.NewPermissionDeniedError(MsgLoginRequired)
		}
		return q.Where("EXISTS (SELECT 1 FROM "+table+" m WHERE m.recipe_id = recipes.id AND m.user_id = ?)", callerID), nil
	}
}
