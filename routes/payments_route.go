package routes

import (
	"github.com/gofiber/fiber/v2"

	paymentController "github.com/agrikart/api/controllers/payments"
	"github.com/agrikart/api/middlewares"
)

func PaymentRoutes(app *fiber.App, auth *middlewares.Auth, ct *paymentController.PaymentController) {
	app.Post("/api/payments/create-order", auth.Require, ct.CreateOrder)
	app.Post("/api/payments/verify", auth.Require, ct.Verify)
}
