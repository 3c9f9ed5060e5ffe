package server

import (
	"math"
	"net/url"
	"strconv"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// MsgInvalidBody is returned when the request body is not valid JSON.
const MsgInvalidBody = "Неверный формат запроса."

const (
	defaultPageSize = 6
	maxPageSize     = 100
)

// pageRequest is a parsed page/limit pair.
type pageRequest struct {
	Page   int
	Limit  int
	Offset int
}

// callerID returns the authenticated user id, or 0 for anonymous requests.
func callerID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func tokenClaims(c *fiber.Ctx) *middleware.AccessClaims {
	claims, _ := c.Locals("tokenClaims").(*middleware.AccessClaims)
	return claims
}

// parseID reads a positive numeric route parameter. Anything else is
// reported as an unknown resource.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError(resource, raw)
	}
	return uint(id), nil
}

// parseBody decodes the JSON body into dest.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError(MsgInvalidBody)
	}
	return nil
}

// queryParams returns every query parameter with all of its values.
func queryParams(c *fiber.Ctx) map[string][]string {
	values, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return map[string][]string{}
	}
	return values
}

// parsePage reads the 1-based page and the limit page size.
func (s *Server) parsePage(c *fiber.Ctx) (pageRequest, error) {
	size := defaultPageSize
	if s.config != nil && s.config.PageSize > 0 {
		size = s.config.PageSize
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n-1 > math.MaxInt/size {
			return pageRequest{}, invalidPage()
		}
		page = n
	}
	return pageRequest{Page: page, Limit: size, Offset: (page - 1) * size}, nil
}

func invalidPage() *models.AppError {
	err := models.NewNotFoundError("Page", nil)
	err.Message = models.MsgInvalidPage
	return err
}

// newPage wraps results into the pagination envelope. A page past the end
// is reported as not found.
func newPage[T any](c *fiber.Ctx, pr pageRequest, total int64, results []T) (*models.Page[T], error) {
	if pr.Page > 1 && int64(pr.Offset) >= total {
		return nil, invalidPage()
	}
	if results == nil {
		results = []T{}
	}
	out := &models.Page[T]{Count: total, Results: results}
	if int64(pr.Offset+len(results)) < total {
		out.Next = pageLink(c, pr.Page+1)
	}
	if pr.Page > 1 {
		out.Previous = pageLink(c, pr.Page-1)
	}
	return out, nil
}

// pageLink is the absolute URL of the current request with page replaced.
// Page 1 drops the parameter.
func pageLink(c *fiber.Ctx, page int) *string {
	q := url.Values(queryParams(c))
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	link := c.BaseURL() + c.Path()
	if encoded := q.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return &link
}

// baseURLMiddleware makes the request origin available to services that
// build absolute URLs.
func (s *Server) baseURLMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(service.WithBaseURL(c.UserContext(), c.BaseURL()))
		return c.Next()
	}
}

func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithAppError(c, err)
}
