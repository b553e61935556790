package models

import "time"

// User — единственная таблица приложения. Поля reset_* либо оба заполнены,
// либо оба NULL: токен сброса живёт только парой со сроком действия.
type User struct {
	ID             int        `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	ResetTokenHash *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type UserProfileResponse struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
