package handlers

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"baghchal-server/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// lockedChannel serializes writes to one connection. The transport allows a
// single concurrent writer, and registry broadcasts run on the opponent's
// goroutine while the read loop writes its own error replies.
type lockedChannel struct {
	mu sync.Mutex
	w  jsonWriter
}

func (c *lockedChannel) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.WriteJSON(v)
}

// SetupGameSocket mounts the persistent game channel. Authentication happens
// on the socket itself (token query param) because websocket upgrades cannot
// carry an Authorization header from browsers.
func SetupGameSocket(app *fiber.App, registry *services.SessionRegistry, auth *services.AuthService) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/game", websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()
		ctx := context.Background()

		token := conn.Query("token")
		matchID := conn.Query("matchId")
		if token == "" || matchID == "" {
			rejectSocket(conn, "token and matchId required")
			return
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			rejectSocket(conn, "invalid token")
			return
		}

		ch := &lockedChannel{w: conn}
		if _, err := registry.Connect(ctx, matchID, userID, ch); err != nil {
			rejectSocket(conn, err.Error())
			return
		}
		defer registry.Disconnect(ctx, matchID, userID, ch)

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("[WS] user %d left match %s: %v", userID, matchID, err)
				return
			}
			var intent services.MoveIntent
			if err := json.Unmarshal(raw, &intent); err != nil {
				if werr := ch.WriteJSON(fiber.Map{"type": "error", "message": "invalid JSON"}); werr != nil {
					return
				}
				continue
			}
			registry.SubmitMove(ctx, matchID, ch, intent)
		}
	}))
}

// rejectSocket sends a final error frame and closes with a policy-violation
// code, matching the contract for authentication and not-found failures.
func rejectSocket(conn *websocket.Conn, message string) {
	_ = conn.WriteJSON(fiber.Map{"type": "error", "message": message})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message))
}
