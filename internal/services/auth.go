package services

import (
	"context"
	"errors"
	"secureapp/internal/logger"
	"secureapp/internal/models"
	"secureapp/internal/repository"
	"secureapp/internal/utils"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too short")
)

type AuthService struct {
	repo           UserRepo
	minPasswordLen int
}

func NewAuthService(repo UserRepo, minPasswordLen int) *AuthService {
	return &AuthService{repo: repo, minPasswordLen: minPasswordLen}
}

type UserRepo interface {
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// NormalizeEmail — канонический ключ поиска: без пробелов, в нижнем регистре.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) RegisterUser(ctx context.Context, email, plainPassword string) (*models.User, error) {
	email = NormalizeEmail(email)
	logger.Log.Info("Регистрация пользователя (service)", zap.String("email", email))

	if len(plainPassword) < s.minPasswordLen {
		return nil, ErrWeakPassword
	}

	if exists, err := s.repo.IsEmailTaken(ctx, email); exists || err != nil {
		if err != nil {
			logger.Log.Error("Ошибка проверки email", zap.Error(err))
			return nil, err
		}
		return nil, ErrEmailTaken
	}

	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		logger.Log.Error("Ошибка хеширования пароля", zap.Error(err))
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: hashed}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// гонка двух регистраций: уникальный индекс — последняя линия обороны
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		logger.Log.Error("Ошибка создания пользователя", zap.Error(err))
		return nil, err
	}
	logger.Log.Info("Пользователь зарегистрирован (service)", zap.Int("user_id", user.ID))
	return user, nil
}

func (s *AuthService) LoginUser(
	ctx context.Context,
	email, password, jwtSecret string,
	accessTTL time.Duration,
) (string, *models.User, error) {
	email = NormalizeEmail(email)
	logger.Log.Info("Попытка входа (service)", zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Log.Error("Ошибка поиска пользователя при входе", zap.Error(err))
			return "", nil, err
		}
		logger.Log.Warn("Пользователь не найден (service)", zap.String("email", email))
		return "", nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.Warn("Неверный пароль (service)", zap.Int("user_id", user.ID))
		return "", nil, ErrInvalidCredentials
	}

	accessToken, err := utils.GenerateToken(jwtSecret, user.ID, user.Email, accessTTL)
	if err != nil {
		logger.Log.Error("Ошибка генерации access-токена", zap.Error(err))
		return "", nil, err
	}

	logger.Log.Info("Вход выполнен (service)", zap.Int("user_id", user.ID))
	return accessToken, user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		logger.Log.Warn("Пользователь не найден по ID (service)", zap.Int("user_id", id), zap.Error(err))
	}
	return user, err
}
