package responses

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope returned by every endpoint.
type APIResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Result  *fiber.Map `json:"result,omitempty"`
}

// Ok writes a success envelope with an optional result payload.
func Ok(c *fiber.Ctx, message string, result *fiber.Map) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Message: message,
		Result:  result,
	})
}

// Created writes a 201 success envelope.
func Created(c *fiber.Ctx, message string, result *fiber.Map) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success: true,
		Message: message,
		Result:  result,
	})
}

// Fail writes a failure envelope with the given HTTP status.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}
