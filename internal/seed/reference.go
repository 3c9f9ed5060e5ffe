// Package seed loads reference data (ingredients, tags) and optional demo
// content into the application database.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"

	"gopkg.in/yaml.v3"
)

const (
	IngredientsFile = "ingredients.json"
	TagsFile        = "tags.yml"
)

//go:embed data/ingredients.json
var defaultIngredients []byte

//go:embed data/tags.yml
var defaultTags []byte

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagRecord struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Slug  string `yaml:"slug"`
}

// ReadDataFile returns the contents of name under dir, or the embedded
// default when dir is empty or the file does not exist.
func ReadDataFile(dir, name string) ([]byte, error) {
	if dir != "" {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return raw, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	switch name {
	case IngredientsFile:
		return defaultIngredients, nil
	case TagsFile:
		return defaultTags, nil
	}
	return nil, fmt.Errorf("no embedded default for %s", name)
}

// LoadIngredients bulk-inserts the JSON list in raw. Nothing is loaded when any
// ingredient already exists. It returns the number of rows inserted.
func LoadIngredients(ctx context.Context, repo repository.IngredientRepository, raw []byte) (int, error) {
	existing, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		middleware.Logger.InfoContext(ctx, "ingredients already loaded, skipping", "count", existing)
		return 0, nil
	}

	var records []ingredientRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("parse ingredients: %w", err)
	}
	items := make([]models.Ingredient, 0, len(records))
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		unit := strings.TrimSpace(rec.MeasurementUnit)
		if name == "" || unit == "" {
			return 0, fmt.Errorf("ingredient #%d: name and measurement_unit are required", i+1)
		}
		items = append(items, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if err := repo.CreateBatch(ctx, items); err != nil {
		return 0, err
	}
	middleware.Logger.InfoContext(ctx, "ingredients loaded", "count", len(items))
	return len(items), nil
}

// LoadTags upserts the YAML list in raw by slug. Running it twice is a no-op.
func LoadTags(ctx context.Context, repo repository.TagRepository, raw []byte) (int, error) {
	var records []tagRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("parse tags: %w", err)
	}
	tags := make([]models.Tag, 0, len(records))
	for i, rec := range records {
		tag := models.Tag{
			Name:  strings.TrimSpace(rec.Name),
			Color: strings.TrimSpace(rec.Color),
			Slug:  strings.TrimSpace(rec.Slug),
		}
		if tag.Name == "" || tag.Slug == "" || !isHexColor(tag.Color) {
			return 0, fmt.Errorf("tag #%d: name, slug and a #RRGGBB color are required", i+1)
		}
		tags = append(tags, tag)
	}
	if err := repo.UpsertBySlug(ctx, tags); err != nil {
		return 0, err
	}
	middleware.Logger.InfoContext(ctx, "tags loaded", "count", len(tags))
	return len(tags), nil
}

// ReferenceData loads ingredients and tags from dataDir, falling back to the
// embedded defaults.
func ReferenceData(ctx context.Context, ingredients repository.IngredientRepository, tags repository.TagRepository, dataDir string) error {
	raw, err := ReadDataFile(dataDir, IngredientsFile)
	if err != nil {
		return err
	}
	if _, err := LoadIngredients(ctx, ingredients, raw); err != nil {
		return fmt.Errorf("load ingredients: %w", err)
	}

	raw, err = ReadDataFile(dataDir, TagsFile)
	if err != nil {
		return err
	}
	if _, err := LoadTags(ctx, tags, raw); err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
