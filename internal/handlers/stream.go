package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/websocket/v2"
)

// StreamHandler serves the summary stream over a WebSocket. The first text
// frame carries a SummaryRequest; every event is sent as one JSON text frame.
type StreamHandler struct {
	summary *SummaryHandler
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(summary *SummaryHandler) *StreamHandler {
	return &StreamHandler{summary: summary}
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	ctx, cancel, log := requestContext(context.Background(), h.summary.log, h.summary.cfg.Timeout)
	defer cancel()

	log.Info("websocket connection established")

	var req SummaryRequest
	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Info("websocket closed before request", slog.String("error", err.Error()))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := json.Unmarshal(message, &req); err != nil {
			_ = c.WriteJSON(Event{Type: EventError, Message: "Invalid request body"})
			return
		}
		break
	}

	// a read error means the peer went away; resolution and streaming both stop
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	job, apiErr := h.summary.prepare(ctx, req)
	if apiErr != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			log.Info("websocket closed during transcript resolution")
			return
		}
		_ = c.WriteJSON(apiErrorEvent(apiErr))
		return
	}
	if job.verdict.IsMinimal {
		_ = c.WriteJSON(job.minimalBody())
		return
	}

	h.summary.run(ctx, cancel, job, func(ev Event) error {
		return c.WriteJSON(ev)
	})
}

// errorEvent carries an apiError over the websocket
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`

	// TryDOMExtraction mirrors the HTTP total-failure contract
	TryDOMExtraction bool `json:"tryDomExtraction,omitempty"`
}

func apiErrorEvent(e *apiError) errorEvent {
	ev := errorEvent{Type: EventError, Message: e.Message, Status: e.Status, Code: e.Type}
	if v, ok := e.Extra["tryDomExtraction"].(bool); ok {
		ev.TryDOMExtraction = v
	}
	return ev
}
