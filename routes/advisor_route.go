package routes

import (
	"github.com/gofiber/fiber/v2"

	advisorController "github.com/agrikart/api/controllers/advisor"
	"github.com/agrikart/api/middlewares"
)

func AdvisorRoutes(app *fiber.App, auth *middlewares.Auth, ct *advisorController.AdvisorController) {
	app.Post("/api/advisor/chat", auth.Require, ct.Chat)
}
