package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"secureapp/internal/logger"
	"secureapp/internal/services"
	helpers "secureapp/internal/utils/helpers"

	"go.uber.org/zap"
)

type PasswordHandler struct {
	svc *services.PasswordService
}

func NewPasswordHandler(svc *services.PasswordService) *PasswordHandler {
	return &PasswordHandler{svc: svc}
}

type requestResetReq struct {
	Email string `json:"email" validate:"required,email"`
}

// requestResetMessage — единый ответ на любой исход: по телу ответа нельзя
// понять, зарегистрирован email или нет.
const requestResetMessage = "If the email exists, a reset link has been sent."

// RequestReset godoc
// @Summary Запрос восстановления пароля
// @Description Отправляет письмо со ссылкой для сброса пароля. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags password
// @Accept json
// @Produce json
// @Param input body requestResetReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/request-reset [post]
func (h *PasswordHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req requestResetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в RequestReset")
		helpers.Error(w, http.StatusBadRequest, "email required")
		return
	}

	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		// Ошибку логируем, но клиенту отвечаем одинаково
		log.Error("Сбой при запросе восстановления пароля", zap.Error(err))
	}

	helpers.JSON(w, http.StatusOK, map[string]string{"message": requestResetMessage})
}

type resetPasswordReq struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPassword godoc
// @Summary Сброс пароля по токену
// @Description Устанавливает новый пароль по токену из письма. Токен одноразовый.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetPasswordReq true "Токен, email и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/reset-password [post]
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Ошибка декодирования JSON в ResetPassword", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		log.Warn("Невалидный payload в ResetPassword", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "token, email and password required")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOrExpiredToken):
			helpers.Error(w, http.StatusBadRequest, "invalid or expired token")
		case errors.Is(err, services.ErrWeakPassword):
			helpers.Error(w, http.StatusBadRequest, "password too short")
		default:
			log.Error("Сбой при сбросе пароля", zap.Error(err))
			helpers.Error(w, http.StatusInternalServerError, "internal")
		}
		return
	}

	log.Info("Пароль успешно сброшен")
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
