package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
)

// TokenValidator resolves a bearer token to a user identifier.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// FeedHandler exposes the change-event feed over websocket connections.
type FeedHandler struct {
	hub       *Hub
	validator TokenValidator
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(hub *Hub, validator TokenValidator) *FeedHandler {
	return &FeedHandler{hub: hub, validator: validator}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client on the requested
// channels. Clients pass channels as a comma-separated query parameter.
func (h *FeedHandler) Handle(c *gin.Context) {
	channels := splitChannels(c.Query("channels"))
	if len(channels) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one channel is required"})
		return
	}

	ctx, span := otel.Tracer("messaging-service/realtime").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	for _, channel := range channels {
		h.hub.AddClient(channel, conn, info)
	}

	observability.IncWSActive("realtime")
	observability.IncWSEvent("realtime", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload("ws_connect", channels, info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close
	go func() {
		var closeReason string
		defer func() {
			for _, channel := range channels {
				h.hub.RemoveClient(channel, conn)
			}
			observability.DecWSActive("realtime")
			observability.IncWSEvent("realtime", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload("ws_disconnect", channels, info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("realtime", "ws_error")
					_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload("ws_error", channels, info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}

func (h *FeedHandler) validateToken(ctx context.Context, header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.validator.ValidateToken(ctx, parts[1])
	}
	return "", fmt.Errorf("invalid token")
}

func splitChannels(raw string) []string {
	var channels []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			channels = append(channels, trimmed)
		}
	}
	return channels
}

func wsEventPayload(event string, channels []string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"channels":    channels,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
