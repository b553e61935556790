package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"secureapp/internal/logger"
	"secureapp/internal/models"
	"secureapp/internal/repository"
	"secureapp/internal/utils"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidOrExpiredToken — единый ответ на несуществующий, чужой и просроченный
// токен: различать их снаружи нельзя.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

type PasswordService struct {
	repo           PasswordResetRepo
	notifier       ResetNotifier
	tokenTTL       time.Duration
	minPasswordLen int
	now            func() time.Time
}

type PasswordResetRepo interface {
	SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) (int64, error)
	GetUserByResetToken(ctx context.Context, tokenHash, email string) (*models.User, error)
	ConsumePasswordReset(ctx context.Context, userID int, tokenHash, passwordHash string) (int64, error)
}

// ResetNotifier — граница уведомлений: сервис токенов не знает, SMTP это или лог.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

func NewPasswordService(repo PasswordResetRepo, notifier ResetNotifier, tokenTTL time.Duration, minPasswordLen int) *PasswordService {
	return &PasswordService{
		repo:           repo,
		notifier:       notifier,
		tokenTTL:       tokenTTL,
		minPasswordLen: minPasswordLen,
		now:            time.Now,
	}
}

// hashToken — в базе храним только хеш: дамп таблицы не даёт рабочих ссылок.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RequestReset генерирует одноразовый токен и ставит письмо на отправку.
// Возвращает nil и для несуществующего email — наличие аккаунта не раскрываем.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	logger.Log.Info("Запрос на сброс пароля", zap.String("email", email))

	// Криптостойкий токен: 32 байта — с запасом больше минимума в 128 бит
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		logger.Log.Error("Ошибка генерации токена для сброса", zap.Error(err))
		return err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	expires := s.now().Add(s.tokenTTL)
	changed, err := s.repo.SetResetToken(ctx, email, hashToken(token), expires)
	if err != nil {
		logger.Log.Error("Ошибка сохранения токена сброса пароля", zap.Error(err))
		return err
	}
	if changed == 0 {
		// Такого аккаунта нет. Письмо не отправляем, но наружу — тот же успех.
		logger.Log.Info("Сброс запрошен для незарегистрированного email", zap.String("email", email))
		return nil
	}

	if err := s.notifier.SendPasswordReset(ctx, email, token); err != nil {
		// Не фейлим намеренно: доставка — best effort, иначе по ошибкам
		// доставки можно брутить наличие e-mail
		logger.Log.Error("Ошибка отправки письма для сброса пароля",
			zap.String("email", email),
			zap.Error(err),
		)
	}

	logger.Log.Info("Письмо со ссылкой на сброс пароля поставлено на отправку",
		zap.String("email", email),
		zap.Time("expires_at", expires),
	)
	return nil
}

// ValidateToken проверяет пару (email, токен) и срок действия.
// Просроченный токен остаётся в базе до следующего RequestReset — лишний
// DELETE здесь ничего не даёт, слот всё равно перезаписывается.
func (s *PasswordService) ValidateToken(ctx context.Context, email, token string) (*models.User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByResetToken(ctx, hashToken(token), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Log.Warn("Токен сброса не найден", zap.String("email", email))
			return nil, ErrInvalidOrExpiredToken
		}
		logger.Log.Error("Ошибка поиска токена сброса", zap.Error(err))
		return nil, err
	}

	if user.ResetExpiresAt == nil || s.now().After(*user.ResetExpiresAt) {
		logger.Log.Warn("Просроченный токен сброса", zap.Int("user_id", user.ID))
		return nil, ErrInvalidOrExpiredToken
	}

	return user, nil
}

// ResetPassword подтверждает токен и устанавливает новый пароль. Смена пароля
// и погашение токена — один условный UPDATE: из двух конкурентных вызовов с
// одним токеном выигрывает ровно один, второй получает ErrInvalidOrExpiredToken.
func (s *PasswordService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	logger.Log.Info("Попытка сброса пароля по токену")

	user, err := s.ValidateToken(ctx, email, token)
	if err != nil {
		return err
	}

	if len(newPassword) < s.minPasswordLen {
		logger.Log.Warn("Слишком короткий новый пароль", zap.Int("user_id", user.ID))
		return ErrWeakPassword
	}

	pwHash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Log.Error("Ошибка генерации хеша пароля", zap.Error(err), zap.Int("user_id", user.ID))
		return err
	}

	changed, err := s.repo.ConsumePasswordReset(ctx, user.ID, hashToken(token), pwHash)
	if err != nil {
		logger.Log.Error("Ошибка обновления пароля пользователя",
			zap.Int("user_id", user.ID),
			zap.Error(err),
		)
		return err
	}
	if changed == 0 {
		// Токен уже погашен параллельным запросом
		logger.Log.Warn("Токен сброса уже использован", zap.Int("user_id", user.ID))
		return ErrInvalidOrExpiredToken
	}

	logger.Log.Info("Пароль успешно сброшен", zap.Int("user_id", user.ID))
	return nil
}
