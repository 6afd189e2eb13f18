package handlers

import (
	"baghchal-server/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	users := app.Group("/users")
	users.Get("/all", userService.Leaderboard)
	users.Get("/:id", userService.Profile)
	users.Get("/:id/stats", userService.Stats)
	users.Get("/:id/games", userService.Games)
}
