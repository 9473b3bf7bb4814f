package stream

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:trackingID", websocket.New(func(c *websocket.Conn) {
		trackingID := c.Params("trackingID")
		viewer := hub.Register(trackingID)

		ack, _ := json.Marshal(Envelope{Type: "connected", TrackingID: trackingID})
		if err := c.WriteMessage(websocket.TextMessage, ack); err != nil {
			hub.Unregister(viewer)
			return
		}

		done := make(chan struct{})
		go func() {
			for msg := range viewer.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		// Unregister closes Send, which lets the writer drain and exit.
		hub.Unregister(viewer)
		<-done
	}))
}
