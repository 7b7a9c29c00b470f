package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/agrikart/api/responses"
	"github.com/agrikart/api/services/advisor"
)

// AdvisorController fronts the crop-advisory chat.
type AdvisorController struct {
	client *advisor.Client
}

func NewAdvisorController(client *advisor.Client) *AdvisorController {
	return &AdvisorController{client: client}
}

// Chat handles POST /advisor/chat.
func (ct *AdvisorController) Chat(c *fiber.Ctx) error {
	// Model responses can take a while; this is the one endpoint with a
	// longer deadline than the rest of the API.
	ctx, cancel := context.WithTimeout(c.Context(), 90*time.Second)
	defer cancel()

	var body struct {
		Question string            `json:"question"`
		History  []advisor.Message `json:"history"`
	}
	if err := c.BodyParser(&body); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Question == "" {
		return responses.Fail(c, fiber.StatusBadRequest, "Question is required")
	}

	answer, err := ct.client.Advise(ctx, body.Question, body.History)
	if err != nil {
		if errors.Is(err, advisor.ErrNotConfigured) {
			return responses.Fail(c, fiber.StatusServiceUnavailable, "Advisory service unavailable")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Advisory service failed to answer")
	}

	return responses.Ok(c, "Advice generated", &fiber.Map{
		"answer": answer,
	})
}
