package get

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/respond"
)

func New(log *slog.Logger, now func() time.Time) Handler {
	return Handler{
		log: log,
		now: now,
	}
}

type Handler struct {
	log *slog.Logger
	now func() time.Time
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("ping")
	respond.WithJSON(w, models.PingGetResponse{OK: true, Now: h.now().UTC()}, http.StatusOK)
}
