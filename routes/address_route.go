package routes

import (
	"github.com/gofiber/fiber/v2"

	addressController "github.com/agrikart/api/controllers/addresses"
	"github.com/agrikart/api/middlewares"
)

func AddressRoutes(app *fiber.App, auth *middlewares.Auth, ct *addressController.AddressController) {
	app.Post("/api/addresses", auth.Require, ct.Add)
	app.Get("/api/addresses", auth.Require, ct.List)
	app.Put("/api/addresses/:id", auth.Require, ct.Edit)
	app.Delete("/api/addresses/:id", auth.Require, ct.Delete)
}
