package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"secureapp/internal/config"
	"secureapp/internal/logger"
	"secureapp/internal/models"
	"secureapp/internal/reqctx"
	"secureapp/internal/services"
	helpers "secureapp/internal/utils/helpers"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Email и пароль"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Ошибка декодирования JSON в Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		log.Warn("Невалидный payload в Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "email and password required")
		return
	}

	_, err := h.authService.RegisterUser(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			helpers.Error(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, services.ErrWeakPassword):
			helpers.Error(w, http.StatusBadRequest, "password too short")
		default:
			log.Error("Ошибка регистрации пользователя", zap.Error(err))
			helpers.Error(w, http.StatusInternalServerError, "internal")
		}
		return
	}

	helpers.JSON(w, http.StatusCreated, map[string]string{"message": "Registered"})
}

// Login godoc
// @Summary Авторизация пользователя
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Email и пароль"
// @Success 200 {object} loginResponse
// @Failure 401 {object} map[string]string
// @Router /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Ошибка декодирования JSON в Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validate.Struct(req); err != nil {
		log.Warn("Невалидный payload в Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "email and password required")
		return
	}

	cfg, _ := config.LoadConfig()
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		accessTTL = 168 * time.Hour
	}

	access, user, err := h.authService.LoginUser(r.Context(), req.Email, req.Password, cfg.JWTSecret, accessTTL)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			helpers.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Error("Ошибка входа пользователя", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "internal")
		return
	}

	helpers.JSON(w, http.StatusOK, loginResponse{
		AccessToken: access,
		Email:       user.Email,
	})
}

// Profile godoc
// @Summary Данные профиля
// @Tags profile
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.UserProfileResponse
// @Failure 401 {object} map[string]string
// @Router /api/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	userID, ok := reqctx.GetUserID(r.Context())
	if !ok || userID == 0 {
		log.Warn("Нет user_id в контексте Profile")
		helpers.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		helpers.Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	helpers.JSON(w, http.StatusOK, models.UserProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}
