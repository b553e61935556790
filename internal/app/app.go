package app

import (
	"secureapp/internal/config"
	"secureapp/internal/db"
	"secureapp/internal/handlers"
	"secureapp/internal/logger"
	"secureapp/internal/repository"
	"secureapp/internal/routes"
	"secureapp/internal/services"
	"time"

	"github.com/gorilla/mux"
)

func InitApp(cfg *config.Config) (*mux.Router, error) {
	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	// Репозитории
	userRepo := repository.NewUserRepository(conn)

	// Нотификатор выбирается один раз на старте: SMTP настроен — письма через
	// очередь, нет — ссылки в лог. Внутри сервисов ветвления по провайдеру нет.
	var notifier services.ResetNotifier
	if cfg.SMTPHost != "" && cfg.SMTPUser != "" {
		emailService := services.NewEmailService(cfg)
		for i := 0; i < 3; i++ {
			services.StartEmailWorker(emailService)
		}
		notifier = services.NewEmailNotifier(cfg.FrontendURL)
	} else {
		logger.Log.Warn("SMTP не настроен — ссылки сброса пароля будут только в логе")
		notifier = services.NewLogNotifier(cfg.FrontendURL)
	}

	// Сервисы
	authService := services.NewAuthService(userRepo, cfg.PasswordMinLength())
	passwordService := services.NewPasswordService(
		userRepo,
		notifier,
		time.Duration(cfg.PasswordResetTTLMinutes())*time.Minute,
		cfg.PasswordMinLength(),
	)

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService)
	passwordHandler := handlers.NewPasswordHandler(passwordService)
	healthHandler := handlers.NewHealthHandler(conn)

	// Маршруты
	router := mux.NewRouter()
	routes.InitRoutes(router, authHandler, passwordHandler, healthHandler)

	return router, nil
}
