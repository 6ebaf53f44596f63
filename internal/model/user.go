package model

import "time"

type Role string

const (
	RoleMentor  Role = "MENTOR"
	RoleStudent Role = "STUDENT"
)

type User struct {
	ID             int64     `json:"id"`
	Mail           string    `json:"mail"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	Enabled        bool      `json:"enabled"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	TelegramChatID *int64    `json:"telegramChatId,omitempty"` // чат для уведомлений, если привязан
	CreatedAt      time.Time `json:"-"`
}

// FullName имя для текстов уведомлений
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// StudentInput регистрация или частичное обновление студента.
// Role и Enabled выставляет сервер, клиент их передавать не может.
type StudentInput struct {
	ID             *int64  `json:"id,omitempty"`
	Mail           *string `json:"mail,omitempty" validate:"omitempty,email,max=255"`
	Password       *string `json:"password,omitempty" validate:"omitempty,min=1,max=72"`
	FirstName      *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName       *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Role           *Role   `json:"role,omitempty"`
	Enabled        *bool   `json:"enabled,omitempty"`
	TelegramChatID *int64  `json:"telegramChatId,omitempty"`
}
