package handlers

import (
	"baghchal-server/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReplayRoutes(app *fiber.App, replayService *services.ReplayService) {
	replay := app.Group("/replay")
	replay.Get("/user/:user_id", replayService.GetUserReplays)
	replay.Get("/:game_id", replayService.GetReplay)
}
