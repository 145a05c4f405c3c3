package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("Post", "p1"), fiber.StatusNotFound},
		{NewValidationError("bad"), fiber.StatusBadRequest},
		{NewUnauthorizedError("no session"), fiber.StatusUnauthorized},
		{NewForbiddenError("not yours"), fiber.StatusForbidden},
		{NewConflictError("dup", nil), fiber.StatusConflict},
		{NewUnavailableError("storage", errors.New("down")), fiber.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", NewForbiddenError("not yours")), fiber.StatusForbidden},
		{errors.New("plain"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
	assert.True(t, IsCode(NewForbiddenError("x"), CodeForbidden))
	assert.False(t, IsCode(NewForbiddenError("x"), CodeUnauthorized))
}
