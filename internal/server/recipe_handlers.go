package server

import (
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

const shoppingListFilename = "shopping_list.pdf"

// ListRecipes handles GET /api/recipes/
// @Summary List recipes, newest first
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param author query int false "Author ID"
// @Param tags query []string false "Tag slugs (any of)" collectionFormat(multi)
// @Param is_favorited query int false "1 to keep favorites"
// @Param is_in_shopping_cart query int false "1 to keep cart recipes"
// @Success 200 {object} object{count=int,next=string,previous=string,results=[]models.RecipeView}
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes/ [get]
func (s *Server) ListRecipes(c *fiber.Ctx) error {
	pr, err := s.parsePage(c)
	if err != nil {
		return respond(c, err)
	}
	recipes, total, err := s.recipeService.List(c.UserContext(), callerID(c), queryParams(c), pr.Limit, pr.Offset)
	if err != nil {
		return respond(c, err)
	}
	page, err := newPage(c, pr, total, recipes)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// CreateRecipe handles POST /api/recipes/
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.RecipeInput true "Recipe"
// @Success 201 {object} models.RecipeView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /recipes/ [post]
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var in service.RecipeInput
	if err := parseBody(c, &in); err != nil {
		return respond(c, err)
	}
	view, err := s.recipeService.Create(c.UserContext(), callerID(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// GetRecipe handles GET /api/recipes/:id/
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} models.RecipeView
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/ [get]
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Recipe")
	if err != nil {
		return respond(c, err)
	}
	view, err := s.recipeService.Get(c.UserContext(), callerID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

// UpdateRecipe handles PATCH /api/recipes/:id/
// @Summary Replace a recipe's fields, tags and ingredients
// @Tags recipes
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Param request body service.RecipeInput true "Recipe"
// @Success 200 {object} models.RecipeView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/ [patch]
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Recipe")
	if err != nil {
		return respond(c, err)
	}
	var in service.RecipeInput
	if err := parseBody(c, &in); err != nil {
		return respond(c, err)
	}
	view, err := s.recipeService.Update(c.UserContext(), callerID(c), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(view)
}

// DeleteRecipe handles DELETE /api/recipes/:id/
// @Summary Delete a recipe
// @Tags recipes
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/ [delete]
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Recipe")
	if err != nil {
		return respond(c, err)
	}
	if err := s.recipeService.Delete(c.UserContext(), callerID(c), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddFavorite handles POST /api/recipes/:id/favorite/
// @Summary Add a recipe to favorites
// @Tags recipes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.ShortRecipe
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes/{id}/favorite/ [post]
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	return s.addMembership(c, s.favoriteService)
}

// RemoveFavorite handles DELETE /api/recipes/:id/favorite/
// @Summary Remove a recipe from favorites
// @Tags recipes
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes/{id}/favorite/ [delete]
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	return s.removeMembership(c, s.favoriteService)
}

// AddToShoppingCart handles POST /api/recipes/:id/shopping_cart/
// @Summary Add a recipe to the shopping cart
// @Tags recipes
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Success 201 {object} models.ShortRecipe
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes/{id}/shopping_cart/ [post]
func (s *Server) AddToShoppingCart(c *fiber.Ctx) error {
	return s.addMembership(c, s.cartService)
}

// RemoveFromShoppingCart handles DELETE /api/recipes/:id/shopping_cart/
// @Summary Remove a recipe from the shopping cart
// @Tags recipes
// @Security ApiKeyAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes/{id}/shopping_cart/ [delete]
func (s *Server) RemoveFromShoppingCart(c *fiber.Ctx) error {
	return s.removeMembership(c, s.cartService)
}

func (s *Server) addMembership(c *fiber.Ctx, list *service.MembershipService) error {
	id, err := parseID(c, "id", "Recipe")
	if err != nil {
		return respond(c, err)
	}
	short, err := list.Add(c.UserContext(), callerID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(short)
}

func (s *Server) removeMembership(c *fiber.Ctx, list *service.MembershipService) error {
	id, err := parseID(c, "id", "Recipe")
	if err != nil {
		return respond(c, err)
	}
	if err := list.Remove(c.UserContext(), callerID(c), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadShoppingCart handles GET /api/recipes/download_shopping_cart/
// @Summary Download the aggregated shopping list as PDF
// @Tags recipes
// @Produce application/pdf
// @Security ApiKeyAuth
// @Success 200 {file} file
// @Failure 401 {object} models.ErrorResponse
// @Router /recipes/download_shopping_cart/ [get]
func (s *Server) DownloadShoppingCart(c *fiber.Ctx) error {
	doc, err := s.shoppingService.Export(c.UserContext(), callerID(c))
	if err != nil {
		return respond(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+shoppingListFilename+`"`)
	return c.Send(doc)
}
