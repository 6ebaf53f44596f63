package repository

import "errors"

// Ошибки ограничений хранилища. Их возвращают и PostgreSQL, и in-memory реализации.
var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotTaken       = errors.New("slot already has a student")
	ErrSlotCollision   = errors.New("slot with the same date and start time exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrLoginTaken      = errors.New("login already taken")
	ErrStudentHasSlots = errors.New("student has booked slots")
)
