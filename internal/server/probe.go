package server

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// probe pings the client every interval. A ping not answered within timeout
// closes the connection, which the reader reports as a disconnection.
func probe(ctx context.Context, c *Conn, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, timeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.log.WithError(err).Info("Liveness probe failed")
				c.Close(websocket.StatusGoingAway, "liveness probe failed")
				return
			}
		}
	}
}
