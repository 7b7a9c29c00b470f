package routes

import (
	"github.com/gofiber/fiber/v2"

	userController "github.com/agrikart/api/controllers/user"
)

func UserRoutes(app *fiber.App, ct *userController.UserController) {
	app.Post("/api/auth/signup", ct.SignUp)
	app.Post("/api/auth/signin", ct.SignIn)
}
