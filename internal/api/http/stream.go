package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const streamHeartbeat = 30 * time.Second

// streamHandler pushes a snapshot event on connect and after every committed
// tick until the client goes away or the monitor closes.
func streamHandler(mon Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			updates, unsubscribe := mon.Subscribe()
			defer unsubscribe()

			if err := writeEvent(w, "snapshot", newCurrentView(mon.Snapshot())); err != nil {
				return
			}

			heartbeat := time.NewTicker(streamHeartbeat)
			defer heartbeat.Stop()

			for {
				select {
				case snap, ok := <-updates:
					if !ok {
						return
					}
					if err := writeEvent(w, "snapshot", newCurrentView(snap)); err != nil {
						return
					}
				case <-heartbeat.C:
					fmt.Fprint(w, ": ping\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}))
		return nil
	}
}

func writeEvent(w *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: stream: failed to encode %s event: %v", event, err)
		return err
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return w.Flush()
}
