package service

import (
	"context"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/permissions"
	"foodgram/internal/repository"
	"foodgram/internal/shoplist"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DocumentRenderer lays out shopping list lines as a binary document.
type DocumentRenderer interface {
	Render(lines []string) ([]byte, error)
}

// ShoppingListService aggregates a user's cart and renders it.
type ShoppingListService struct {
	recipes  repository.RecipeRepository
	renderer DocumentRenderer
}

func NewShoppingListService(recipes repository.RecipeRepository, renderer DocumentRenderer) *ShoppingListService {
	return &ShoppingListService{recipes: recipes, renderer: renderer}
}

// Lines returns one formatted line per ingredient in userID's cart, summed
// across recipes and ordered by ingredient name.
func (s *ShoppingListService) Lines(ctx context.Context, userID uint) ([]string, error) {
	if err := permissions.AuthenticatedOnly.CheckRequest(permissions.Request{Method: "GET", UserID: userID}); err != nil {
		return nil, err
	}
	totals, err := s.recipes.ShoppingTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	return shoplist.FormatLines(totals), nil
}

// Export renders the shopping list document for userID.
func (s *ShoppingListService) Export(ctx context.Context, userID uint) ([]byte, error) {
	ctx, span := observability.GetTraceLayer().TraceServiceCall(ctx, "ShoppingListService", "Export")
	defer span.End()

	lines, err := s.Lines(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate")
		return nil, err
	}
	span.SetAttributes(attribute.Int("shoplist.lines", len(lines)))

	doc, err := s.renderer.Render(lines)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render")
		middleware.Logger.ErrorContext(ctx, "shopping list render failed", "user_id", userID, "error", err)
		return nil, models.NewInternalError(err)
	}
	observability.ShoppingListExports.Inc()
	middleware.Logger.InfoContext(ctx, "shopping list exported", "user_id", userID, "lines", len(lines), "bytes", len(doc))
	return doc, nil
}
