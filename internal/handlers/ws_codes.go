// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the notifications socket.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token missing, invalid or expired.
	SubscriberLagError    = 3002 // Client fell behind and the hub dropped its subscription.
)
