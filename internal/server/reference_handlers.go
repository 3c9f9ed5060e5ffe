package server

import (
	"github.com/gofiber/fiber/v2"
)

// ListTags handles GET /api/tags/
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags/ [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.tagRepo.List(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:id/
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} models.Tag
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{id}/ [get]
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Tag")
	if err != nil {
		return respond(c, err)
	}
	tag, err := s.tagRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tag)
}

// ListIngredients handles GET /api/ingredients/?name=
// @Summary Search ingredients by name prefix
// @Tags ingredients
// @Produce json
// @Param name query string false "Case-insensitive name prefix"
// @Success 200 {array} models.Ingredient
// @Router /ingredients/ [get]
func (s *Server) ListIngredients(c *fiber.Ctx) error {
	items, err := s.ingredientRepo.Search(c.UserContext(), c.Query("name"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(items)
}

// GetIngredient handles GET /api/ingredients/:id/
// @Summary Get an ingredient
// @Tags ingredients
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} models.Ingredient
// @Failure 404 {object} models.ErrorResponse
// @Router /ingredients/{id}/ [get]
func (s *Server) GetIngredient(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Ingredient")
	if err != nil {
		return respond(c, err)
	}
	item, err := s.ingredientRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(item)
}
