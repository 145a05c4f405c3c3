package server

import (
	"errors"

	"snapgram/internal/models"
	"snapgram/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const maxPaginationLimit = 100

// parseLimit reads ?limit=, clamped to [1, maxPaginationLimit]. A missing or
// non-positive value yields 0, leaving the default to the store.
func parseLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", 0)
	if limit <= 0 {
		return 0
	}
	if limit > maxPaginationLimit {
		return maxPaginationLimit
	}
	return limit
}

// respond writes err with the status its code maps to.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func forbidden(c *fiber.Ctx, msg string) error {
	return respond(c, models.NewForbiddenError(msg))
}

func currentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}

// formUpload reads the multipart file field. It returns a nil upload when the
// field is absent or the body is not multipart. The caller must call the returned close func.
func formUpload(c *fiber.Ctx, field string) (*storage.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, func() {}, nil
		}
		return nil, func() {}, models.NewValidationError("invalid multipart form")
	}
	if fh == nil {
		return nil, func() {}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, models.NewValidationError("could not read uploaded file")
	}
	u := &storage.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}
	return u, func() { _ = f.Close() }, nil
}
