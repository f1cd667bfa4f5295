// Package utils holds the JSON envelope shared by the non-contract API routes.
package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// APIResponse is the envelope wrapping every route except the grading contract.
type APIResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data any) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus writes a success envelope with the given status.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data any) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return send(c, status, APIResponse{Success: true, Message: orDefault(message, "success"), Data: data})
}

// SendError writes an error envelope.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithDetails(c, status, message, nil)
}

// SendErrorWithDetails writes an error envelope carrying machine-readable details,
// such as the failing fields of a rejected payload.
func SendErrorWithDetails(c *fiber.Ctx, status int, message string, details any) error {
	return send(c, status, APIResponse{Success: false, Message: orDefault(message, "error"), Details: details})
}

// ErrorHandler renders errors escaping the handlers, including unmatched routes, as envelopes.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return SendError(c, status, message)
}

func send(c *fiber.Ctx, status int, body APIResponse) error {
	body.RequestID = c.GetRespHeader("X-Correlation-ID")
	return c.Status(status).JSON(body)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
