package server

import (
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Subscriptions handles GET /api/users/subscriptions/
// @Summary Authors the caller follows, with their recipes
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} object{count=int,next=string,previous=string,results=[]models.AuthorWithRecipes}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/subscriptions/ [get]
func (s *Server) Subscriptions(c *fiber.Ctx) error {
	recipesLimit, err := service.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		return respond(c, err)
	}
	pr, err := s.parsePage(c)
	if err != nil {
		return respond(c, err)
	}
	authors, total, err := s.followService.Subscriptions(c.UserContext(), callerID(c), pr.Limit, pr.Offset, recipesLimit)
	if err != nil {
		return respond(c, err)
	}
	page, err := newPage(c, pr, total, authors)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// Subscribe handles POST /api/users/:id/subscribe/
// @Summary Follow an author
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes in the response"
// @Success 201 {object} models.AuthorWithRecipes
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/subscribe/ [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "User")
	if err != nil {
		return respond(c, err)
	}
	recipesLimit, err := service.ParseRecipesLimit(c.Query("recipes_limit"))
	if err != nil {
		return respond(c, err)
	}
	author, err := s.followService.Subscribe(c.UserContext(), callerID(c), id, recipesLimit)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(author)
}

// Unsubscribe handles DELETE /api/users/:id/subscribe/
// @Summary Unfollow an author
// @Tags users
// @Security ApiKeyAuth
// @Param id path int true "Author ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/subscribe/ [delete]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "User")
	if err != nil {
		return respond(c, err)
	}
	if err := s.followService.Unsubscribe(c.UserContext(), callerID(c), id); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
