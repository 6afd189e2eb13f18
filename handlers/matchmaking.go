package handlers

import (
	"baghchal-server/middleware"
	"baghchal-server/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchmakingRoutes(app *fiber.App, mm *services.MatchmakingService, auth *services.AuthService) {
	group := app.Group("/matchmaking", middleware.RequireUser(auth))

	group.Post("/start", mm.StartMatchmaking)
	group.Post("/cancel", mm.CancelMatchmaking)
	group.Post("/heartbeat", mm.Heartbeat)
	group.Get("/status", mm.Status)
	group.Post("/leave", mm.LeaveMatch)
}
