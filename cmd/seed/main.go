// Command main loads reference data and optional demo content into the database.
package main

import (
	"context"
	"flag"
	"log"

	"foodgram/internal/bootstrap"
	"foodgram/internal/config"
	"foodgram/internal/repository"
	"foodgram/internal/seed"
)

func main() {
	dataDir := flag.String("data-dir", "", "Directory holding ingredients.json and tags.yml (defaults to DATA_DIR, then embedded data)")
	demoUsers := flag.Int("demo-users", 0, "Number of demo users to create")
	demoRecipes := flag.Int("demo-recipes", 0, "Number of demo recipes to create")
	seedValue := flag.Int64("seed", 0, "Random seed for demo content (0 uses the clock)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	ingredients := repository.NewIngredientRepository(db, rdb)
	tags := repository.NewTagRepository(db, rdb)
	if err := seed.ReferenceData(ctx, ingredients, tags, *dataDir); err != nil {
		log.Fatalf("Reference data load failed: %v", err)
	}
	log.Println("Reference data loaded")

	if *demoUsers == 0 && *demoRecipes == 0 {
		return
	}

	res, err := seed.Demo(ctx, db, seed.DemoOptions{
		Users:   *demoUsers,
		Recipes: *demoRecipes,
		Seed:    *seedValue,
	})
	if err != nil {
		log.Fatalf("Demo seeding failed: %v", err)
	}
	log.Printf("Demo content: users=%d recipes=%d follows=%d favorites=%d cart=%d",
		res.Users, res.Recipes, res.Follows, res.Favorites, res.CartItems)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
