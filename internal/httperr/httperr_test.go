package httperr

import (
	"errors"
	"fmt"
	"testing"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/lock"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.NewValidationError("name", "required"), fiber.StatusBadRequest},
		{fmt.Errorf("create: %w", domain.NewDishNotFoundError(4)), fiber.StatusNotFound},
		{&domain.InvalidTransitionError{Entity: "dish order", From: domain.StatusCreated, To: domain.StatusServed}, fiber.StatusConflict},
		{&domain.DuplicateReferenceError{Reference: "T-1"}, fiber.StatusConflict},
		{&domain.ConcurrentUpdateError{Reference: "T-1"}, fiber.StatusConflict},
		{fmt.Errorf("%w: order:T-1", lock.ErrNotObtained), fiber.StatusConflict},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		require.True(t, errors.As(From(tc.err), &fe), "%v", tc.err)
		assert.Equal(t, tc.code, fe.Code, "%v", tc.err)
	}

	storage := domain.NewStorageError("save", errors.New("disk full"))
	assert.Same(t, storage, From(storage))
	assert.Nil(t, From(nil))
}
