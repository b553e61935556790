package routes

import (
	"secureapp/internal/handlers"
	"secureapp/internal/middleware"

	"github.com/gorilla/mux"
)

func InitRoutes(
	router *mux.Router,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logging)

	router.HandleFunc("/healthz", healthHandler.Healthz).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/request-reset", passwordHandler.RequestReset).Methods("POST")
	api.HandleFunc("/reset-password", passwordHandler.ResetPassword).Methods("POST")

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth)

	protected.HandleFunc("/profile", authHandler.Profile).Methods("GET")
}
