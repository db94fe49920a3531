// Package httperr translates service errors into fiber errors.
package httperr

import (
	"errors"

	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/lock"

	"github.com/gofiber/fiber/v2"
)

// From maps typed domain errors to their HTTP status. Anything unrecognised is
// returned as is and ends up as a 500 in the app's ErrorHandler.
func From(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case domain.IsValidation(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case domain.IsConflict(err):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, lock.ErrNotObtained):
		return fiber.NewError(fiber.StatusConflict, "resource is busy, try again")
	}
	return err
}
