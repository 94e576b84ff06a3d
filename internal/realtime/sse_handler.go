package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultHeartbeat = 30 * time.Second

type connectedEvent struct {
	ClientID string `json:"clientId"`
	Room     string `json:"room"`
}

// SSEHandler streams a customer's room to the browser as Server-Sent Events.
type SSEHandler struct {
	subscriber Subscriber
	heartbeat  time.Duration
	logger     *zap.Logger
}

// NewSSEHandler returns a handler that answers 503 when subscriber is nil.
func NewSSEHandler(subscriber Subscriber, heartbeat time.Duration, logger *zap.Logger) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &SSEHandler{
		subscriber: subscriber,
		heartbeat:  heartbeat,
		logger:     logger,
	}
}

func (h *SSEHandler) StreamCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	clientID := uuid.New().String()
	logger := h.logger.With(zap.String("clientId", clientID), zap.String("customerId", customerID))

	if h.subscriber == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":"REALTIME_UNAVAILABLE","message":"realtime transport is not configured"}`)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	room := CustomerRoom(customerID)
	events, err := h.subscriber.Subscribe(ctx, room)
	if err != nil {
		logger.Error("failed to subscribe", zap.Error(err))
		http.Error(w, "failed to subscribe", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, err := json.Marshal(connectedEvent{ClientID: clientID, Room: room})
	if err != nil {
		logger.Error("failed to encode connected event", zap.Error(err))
		return
	}
	writeEvent(w, "connected", "", string(hello))
	flusher.Flush()
	logger.Info("sse client connected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sse client disconnected")
			return
		case <-ticker.C:
			writeEvent(w, "heartbeat", "", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()))
			flusher.Flush()
		case env, ok := <-events:
			if !ok {
				logger.Info("sse subscription closed")
				return
			}
			writeEvent(w, env.Event, fmt.Sprintf("%d", env.EmittedAt.UnixMilli()), string(env.Payload))
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event, id, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
