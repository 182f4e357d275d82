// internal/handlers/notifications_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/fittogether/internal/events"
	"github.com/jason-s-yu/fittogether/internal/middleware"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/sirupsen/logrus"
)

const notificationsSubprotocol = "notifications"

var (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// NotificationsWSHandler streams partner events concerning the authenticated
// user. Browsers that cannot set headers may pass the token as ?token=.
func NotificationsWSHandler(logger *logrus.Logger, hub *events.Hub, authn middleware.Authenticator, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{notificationsSubprotocol},
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.CloseNow()

		if c.Subprotocol() != notificationsSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the notifications subprotocol")
			return
		}

		token := middleware.TokenFromRequest(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		userID, err := authn.AuthenticateJWT(token)
		if err != nil {
			c.Close(InvalidAuthTokenError, "invalid auth token")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		evs, cancel := hub.Subscribe(userID)
		defer cancel()

		// incoming frames are ignored; ctx ends when the peer goes away
		ctx := c.CloseRead(r.Context())
		err = writePump(ctx, c, evs, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)

		if err == nil {
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// writePump forwards events until the connection or the subscription ends.
func writePump(ctx context.Context, c *websocket.Conn, evs <-chan partner.Event, logger *logrus.Logger) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-evs:
			if !ok {
				c.Close(SubscriberLagError, "subscription closed")
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal event %s: %v", ev.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
