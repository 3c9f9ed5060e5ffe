package server

import (
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Login handles POST /api/auth/token/login/
// @Summary Obtain an auth token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Credentials"
// @Success 200 {object} object{auth_token=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/token/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := parseBody(c, &in); err != nil {
		return respond(c, err)
	}
	token, err := s.authService.Login(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"auth_token": token})
}

// Logout handles POST /api/auth/token/logout/
// @Summary Revoke the current token
// @Tags auth
// @Security ApiKeyAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/token/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), tokenClaims(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
