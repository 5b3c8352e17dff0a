package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/flowbit/nl2sql/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const version = "1.0.0"

const healthProbeTimeout = 5 * time.Second

// HealthChecker is implemented by services that can report connectivity
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// HealthHandler handles GET /health
type HealthHandler struct {
	db HealthChecker
	sf singleflight.Group
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health always answers 200; a failed probe is reported in the body.
// Concurrent probes share one database round trip.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_, err, shared := h.sf.Do("db", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
		defer cancel()
		return nil, h.db.TestConnection(ctx)
	})

	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Bool("shared", shared).Msg("health probe failed")
		models.WriteJSON(w, http.StatusOK, models.HealthResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	models.WriteJSON(w, http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Database: "connected",
	})
}
