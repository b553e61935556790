package services

import (
	"context"
	"secureapp/internal/models"
	"secureapp/internal/repository"
	"sync"
	"time"
)

// Мок-репозиторий: одна "таблица" в памяти под мьютексом. Условные апдейты
// ведут себя как настоящие — меняют строку только при совпадении условия.
type mockUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*models.User // ключ — нормализованный email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) IsEmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.users[email]
	return exists, nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrEmailExists
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) SetResetToken(_ context.Context, email, tokenHash string, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return 0, nil
	}
	u.ResetTokenHash = &tokenHash
	exp := expiresAt
	u.ResetExpiresAt = &exp
	return 1, nil
}

func (m *mockUserRepo) GetUserByResetToken(_ context.Context, tokenHash, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok || u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) ConsumePasswordReset(_ context.Context, userID int, tokenHash, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID && u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash {
			u.PasswordHash = passwordHash
			u.ResetTokenHash = nil
			u.ResetExpiresAt = nil
			return 1, nil
		}
	}
	return 0, nil
}

// Мок-нотификатор: запоминает последний токен, может "ломаться".
type mockNotifier struct {
	mu     sync.Mutex
	sent   []string // адреса
	tokens []string
	err    error
}

func (m *mockNotifier) SendPasswordReset(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *mockNotifier) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return ""
	}
	return m.tokens[len(m.tokens)-1]
}

func (m *mockNotifier) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
