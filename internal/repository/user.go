package repository

import (
	"context"
	"errors"
	"secureapp/internal/logger"
	"secureapp/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrEmailExists — нарушение уникальности email (гонка двух регистраций).
var ErrEmailExists = errors.New("email already registered")

// ErrNotFound — запись не найдена.
var ErrNotFound = errors.New("not found")

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, reset_token_hash, reset_expires_at, created_at, updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	logger.Log.Info("Создание пользователя (repo)", zap.String("email", user.Email))
	query := `
	INSERT INTO users (email, password_hash)
	VALUES ($1, $2)
	RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 — unique_violation: кто-то успел зарегистрировать этот email между
		// проверкой IsEmailTaken и вставкой
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailExists
		}
		logger.Log.Error("Ошибка создания пользователя (repo)", zap.Error(err))
	}
	return err
}

func (r *UserRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	logger.Log.Debug("Проверка email на уникальность (repo)", zap.String("email", email))
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		logger.Log.Error("Ошибка проверки email (repo)", zap.Error(err))
	}
	return exists, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по email (repo)", zap.String("email", email))
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var u models.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.Error("Ошибка получения пользователя по email (repo)", zap.Error(err))
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	logger.Log.Debug("Получение пользователя по ID (repo)", zap.Int("user_id", id))
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u models.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.Error("Ошибка получения пользователя по ID (repo)", zap.Int("user_id", id), zap.Error(err))
		return nil, err
	}
	return &u, nil
}

// SetResetToken записывает хеш токена и срок действия, перезаписывая прошлый
// незакрытый токен (слот на аккаунт один). Возвращает число изменённых строк:
// 0 — такого email нет, письмо отправлять некуда.
func (r *UserRepository) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) (int64, error) {
	query := `
	UPDATE users
	SET reset_token_hash = $1, reset_expires_at = $2, updated_at = now()
	WHERE email = $3`
	ct, err := r.db.Exec(ctx, query, tokenHash, expiresAt, email)
	if err != nil {
		logger.Log.Error("Ошибка записи токена сброса (repo)", zap.Error(err))
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// GetUserByResetToken ищет строго по паре (хеш токена, email) — совпадение
// по одному токену недостаточно.
func (r *UserRepository) GetUserByResetToken(ctx context.Context, tokenHash, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 AND email = $2`

	var u models.User
	err := r.db.QueryRow(ctx, query, tokenHash, email).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Log.Error("Ошибка поиска по токену сброса (repo)", zap.Error(err))
		return nil, err
	}
	return &u, nil
}

// ConsumePasswordReset одним UPDATE ставит новый хеш пароля и обнуляет оба
// reset-поля. Условие по reset_token_hash делает апдейт оптимистичным: из двух
// конкурентных сбросов с одним токеном строку изменит ровно один.
func (r *UserRepository) ConsumePasswordReset(ctx context.Context, userID int, tokenHash, passwordHash string) (int64, error) {
	query := `
	UPDATE users
	SET password_hash = $1, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = now()
	WHERE id = $2 AND reset_token_hash = $3`
	ct, err := r.db.Exec(ctx, query, passwordHash, userID, tokenHash)
	if err != nil {
		logger.Log.Error("Ошибка применения сброса пароля (repo)", zap.Int("user_id", userID), zap.Error(err))
		return 0, err
	}
	return ct.RowsAffected(), nil
}
