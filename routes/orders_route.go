package routes

import (
	"github.com/gofiber/fiber/v2"

	orderController "github.com/agrikart/api/controllers/orders"
	"github.com/agrikart/api/middlewares"
)

func OrderRoutes(app *fiber.App, auth *middlewares.Auth, ct *orderController.OrderController) {
	app.Post("/api/orders", auth.Require, ct.Place)
	app.Get("/api/orders/my-orders", auth.Require, ct.ListMine)
	app.Get("/api/orders", auth.Require, auth.RequireAdmin, ct.ListAll)
	app.Get("/api/orders/:id", auth.Require, ct.Get)
	app.Patch("/api/orders/:id/status", auth.Require, auth.RequireAdmin, ct.UpdateStatus)
	app.Patch("/api/orders/:id/cancel", auth.Require, ct.Cancel)
}
