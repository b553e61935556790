package handlers

import (
	"net/http"
	helpers "secureapp/internal/utils/helpers"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthHandler struct {
	db *pgxpool.Pool
}

func NewHealthHandler(db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz godoc
// @Summary Проверка живости сервиса
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		helpers.Error(w, http.StatusServiceUnavailable, "db unavailable")
		return
	}
	helpers.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
