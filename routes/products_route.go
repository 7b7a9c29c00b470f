package routes

import (
	"github.com/gofiber/fiber/v2"

	productController "github.com/agrikart/api/controllers/products"
	"github.com/agrikart/api/middlewares"
)

func ProductRoutes(app *fiber.App, auth *middlewares.Auth, ct *productController.ProductController) {
	app.Get("/api/products", auth.Require, ct.List)
	app.Get("/api/products/search", ct.Search)
	app.Get("/api/products/:id", auth.Require, ct.Get)

	// Catalog administration
	app.Post("/api/products", auth.Require, auth.RequireAdmin, ct.Add)
	app.Put("/api/products/:id", auth.Require, auth.RequireAdmin, ct.Update)
	app.Delete("/api/products/:id", auth.Require, auth.RequireAdmin, ct.Delete)
}
