// Package main provides admin management utilities for FoodGram.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/repository"
	"foodgram/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <email>   - Grant admin rights")
	fmt.Println("  go run ./cmd/admin demote <email>    - Revoke admin rights")
	fmt.Println("  go run ./cmd/admin list-admins       - List all admins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db), repository.NewFollowRepository(db))
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		setAdmin(ctx, users, os.Args[2], command == "promote")
	case "list-admins":
		listAdmins(ctx, users)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, users *service.UserService, email string, admin bool) {
	user, err := users.SetAdmin(ctx, email, admin)
	if err != nil {
		log.Fatalf("Failed to update %s: %v", email, err)
	}
	verb := "demoted from"
	if admin {
		verb = "promoted to"
	}
	fmt.Printf("%s (ID: %d) %s admin\n", user.Username, user.ID, verb)
}

func listAdmins(ctx context.Context, users *service.UserService) {
	admins, err := users.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}

	fmt.Printf("Admins (%d):\n", len(admins))
	for _, a := range admins {
		fmt.Printf("  ID: %d | %s | %s\n", a.ID, a.Username, a.Email)
	}
}
