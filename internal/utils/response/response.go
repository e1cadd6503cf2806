package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domainErrors "pinkpay/internal/errors"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Accepted(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, string(domainErrors.KindValidation), message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", message)
}

// StatusOf maps an error onto an HTTP status by its domain kind.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrInsufficientBalance):
		return fiber.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidState):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// FromError writes err as a JSON error. Messages of unclassified errors are
// not exposed.
func FromError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	if status == fiber.StatusInternalServerError {
		var de *domainErrors.DomainError
		if !errors.As(err, &de) {
			return ServerError(c, "internal server error")
		}
	}
	return Error(c, status, codeOf(err), err.Error())
}

// codeOf also covers errors that only match a kind through Is.
func codeOf(err error) string {
	if code := domainErrors.CodeOf(err); code != "INTERNAL_ERROR" {
		return code
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return "INTERNAL_ERROR"
}
