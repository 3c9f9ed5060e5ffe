package server

import (
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users/
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 201 {object} models.RegisteredUser
// @Failure 400 {object} models.ErrorResponse
// @Router /users/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var in service.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return respond(c, err)
	}
	user, err := s.authService.Register(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// ListUsers handles GET /api/users/
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} object{count=int,next=string,previous=string,results=[]models.UserView}
// @Router /users/ [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	pr, err := s.parsePage(c)
	if err != nil {
		return respond(c, err)
	}
	users, total, err := s.userService.List(c.UserContext(), callerID(c), pr.Limit, pr.Offset)
	if err != nil {
		return respond(c, err)
	}
	page, err := newPage(c, pr, total, users)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// GetUser handles GET /api/users/:id/
// @Summary Get a user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserView
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/ [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "User")
	if err != nil {
		return respond(c, err)
	}
	user, err := s.userService.Get(c.UserContext(), callerID(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// Me handles GET /api/users/me/
// @Summary Current user
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.UserView
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me/ [get]
func (s *Server) Me(c *fiber.Ctx) error {
	id := callerID(c)
	user, err := s.userService.Get(c.UserContext(), id, id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// SetPassword handles POST /api/users/set_password/
// @Summary Change the current password
// @Tags users
// @Accept json
// @Security ApiKeyAuth
// @Param request body service.SetPasswordInput true "Passwords"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /users/set_password/ [post]
func (s *Server) SetPassword(c *fiber.Ctx) error {
	var in service.SetPasswordInput
	if err := parseBody(c, &in); err != nil {
		return respond(c, err)
	}
	if err := s.authService.SetPassword(c.UserContext(), callerID(c), in); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
