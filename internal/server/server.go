// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "foodgram/docs" // swagger docs
	"foodgram/internal/bootstrap"
	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/featureflags"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/permissions"
	"foodgram/internal/repository"
	"foodgram/internal/service"
	"foodgram/internal/shoplist"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	authOpts       middleware.AuthOptions

	tagRepo        repository.TagRepository
	ingredientRepo repository.IngredientRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	images          *service.ImageService
	authService     *service.AuthService
	userService     *service.UserService
	recipeService   *service.RecipeService
	favoriteService *service.MembershipService
	cartService     *service.MembershipService
	followService   *service.FollowService
	shoppingService *service.ShoppingListService
}

// NewServer connects to the database and Redis, loads reference data and
// builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{LoadReferenceData: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: caching, token revocation and cross-instance
// realtime fan-out are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, fmt.Errorf("server requires config and database")
	}

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db, redisClient)
	ingredientRepo := repository.NewIngredientRepository(db, redisClient)
	recipeRepo := repository.NewRecipeRepository(db)
	followRepo := repository.NewFollowRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	cartRepo := repository.NewShoppingCartRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("foodgram-api"),
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         service.NewImageService(cfg),
	}

	var revocations *cache.TokenBlacklist
	if redisClient != nil {
		revocations = cache.NewTokenBlacklist(redisClient)
	}
	s.authOpts = middleware.AuthOptions{Secret: cfg.JWTSecret}
	if revocations != nil {
		s.authOpts.Revocations = revocations
	}

	events := notifications.NewPublisher(s.hub, s.notifier)
	s.authService = service.NewAuthService(userRepo, cfg, revokerOrNil(revocations))
	s.userService = service.NewUserService(userRepo, followRepo)
	s.recipeService = service.NewRecipeService(service.RecipeServiceDeps{
		Recipes:     recipeRepo,
		Tags:        tagRepo,
		Ingredients: ingredientRepo,
		Favorites:   favoriteRepo,
		Cart:        cartRepo,
		Follows:     followRepo,
		Users:       userRepo,
		Images:      s.images,
		Events:      events,
		Flags:       s.featureFlags,
	})
	s.favoriteService = service.NewMembershipService(service.ListFavorites, favoriteRepo, recipeRepo, s.images)
	s.cartService = service.NewMembershipService(service.ListShoppingCart, cartRepo, recipeRepo, s.images)
	s.followService = service.NewFollowService(followRepo, userRepo, recipeRepo, s.images, events)
	s.shoppingService = service.NewShoppingListService(recipeRepo, shoplist.NewRenderer(cfg.PDFFontPath))

	return s, nil
}

// revokerOrNil keeps a nil *TokenBlacklist from becoming a non-nil interface.
func revokerOrNil(b *cache.TokenBlacklist) service.TokenRevoker {
	if b == nil {
		return nil
	}
	return b
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request id, user id and trace id into the user context
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers; media must stay embeddable by the frontend.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "Content-Disposition",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewValidationError("Слишком много запросов, попробуйте позже."))
		},
	}))

	app.Use(s.baseURLMiddleware())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded recipe images
	if mediaURL := s.images.MediaURL(); strings.HasPrefix(mediaURL, "/") {
		app.Static(strings.TrimSuffix(mediaURL, "/"), s.images.MediaDir(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "FoodGram Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	optional := middleware.AuthOptional(s.authOpts)
	required := middleware.AuthRequired(s.authOpts)

	// Auth routes
	auth := api.Group("/auth/token")
	auth.Post("/login", middleware.RateLimit(s.redis, middleware.Limit{Name: "login", Max: 10, Window: 5 * time.Minute}), s.Login)
	auth.Post("/logout", required, s.Logout)

	// User routes. Specific paths before /:id.
	users := api.Group("/users")
	users.Post("/", middleware.RateLimit(s.redis, middleware.Limit{Name: "register", Max: 5, Window: 10 * time.Minute}), s.Register)
	users.Get("/", optional, s.ListUsers)
	users.Get("/me", required, s.Me)
	users.Post("/set_password", required, s.SetPassword)
	users.Get("/subscriptions", optional, s.Subscriptions)
	users.Post("/:id/subscribe", optional, s.Subscribe)
	users.Delete("/:id/subscribe", optional, s.Unsubscribe)
	users.Get("/:id", optional, s.GetUser)

	// Reference data
	tags := api.Group("/tags")
	tags.Get("/", s.ListTags)
	tags.Get("/:id", s.GetTag)
	ingredients := api.Group("/ingredients")
	ingredients.Get("/", s.ListIngredients)
	ingredients.Get("/:id", s.GetIngredient)

	// Recipe routes. download_shopping_cart must precede /:id.
	recipes := api.Group("/recipes", optional)
	recipes.Get("/", s.ListRecipes)
	recipes.Post("/", middleware.RateLimit(s.redis, middleware.Limit{Name: "create_recipe", Max: 30, Window: time.Minute}), s.CreateRecipe)
	recipes.Get("/download_shopping_cart", s.DownloadShoppingCart)
	recipes.Post("/:id/favorite", s.AddFavorite)
	recipes.Delete("/:id/favorite", s.RemoveFavorite)
	recipes.Post("/:id/shopping_cart", s.AddToShoppingCart)
	recipes.Delete("/:id/shopping_cart", s.RemoveFromShoppingCart)
	recipes.Get("/:id", s.GetRecipe)
	recipes.Patch("/:id", s.UpdateRecipe)
	recipes.Delete("/:id", s.DeleteRecipe)

	// Realtime follower feed
	wsOpts := s.authOpts
	wsOpts.AllowQueryToken = true
	api.Get("/ws", middleware.AuthRequired(wsOpts), s.WebsocketHandler())

	// Admin routes
	admin := api.Group("/admin", required, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// App builds the Fiber application without listening, for Start and tests.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "FoodGram API",
		BodyLimit: 16 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				appErr := models.NewValidationError(fe.Message)
				if fe.Code == fiber.StatusNotFound {
					appErr = models.NewNotFoundError("Route", c.Path())
				}
				return models.RespondWithError(c, fe.Code, appErr)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; its absence degrades without failing readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"websockets": s.hub.ConnectionCount(),
		"time":       time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.userService.IsAdmin(c.UserContext(), callerID(c))
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionDeniedError(permissions.MsgAdminRequired))
		}
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", "hub", s.hub.Name(), "error", err)
		}
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
