package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nucore/fincore-backend/internal/adapter/http/middleware"
	"github.com/nucore/fincore-backend/internal/adapter/http/models"
	"github.com/nucore/fincore-backend/internal/adapter/notify"
	"github.com/nucore/fincore-backend/internal/logger"
)

type SettlementSubscriber interface {
	Subscribe(userID uuid.UUID) (<-chan notify.Event, func())
}

// EventsController streams transaction settlement events to the client
// as server-sent events
type EventsController struct {
	registry SettlementSubscriber
}

func NewEventsController(registry SettlementSubscriber) *EventsController {
	return &EventsController{registry: registry}
}

func (c *EventsController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.HandlerFunc(c.stream)
	if authMiddleware != nil {
		mux.Handle("GET /api/v1/events", authMiddleware(handler))
		return
	}
	mux.Handle("GET /api/v1/events", handler)
}

func (c *EventsController) stream(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[struct{}]("unauthorized"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse[struct{}]("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := c.registry.Subscribe(principal)
	defer cancel()

	logger.Info("events stream opened", logger.Fields{"userId": principal})

	for {
		select {
		case <-r.Context().Done():
			logger.Info("events stream closed", logger.Fields{"userId": principal})
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(models.NewTransactionResponse(event.Transaction))
			if err != nil {
				logError(r, err, logger.Fields{"userId": principal})
				continue
			}
			fmt.Fprintf(w, "event: transaction\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
