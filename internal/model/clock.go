package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Clock время дня без даты и часового пояса
type Clock struct {
	civil.Time
}

// NewClock создаёт время дня из часов и минут
func NewClock(hour, minute int) Clock {
	return Clock{civil.Time{Hour: hour, Minute: minute}}
}

// ParseClock разбирает "HH:MM" или "HH:MM:SS[.fff]"
func ParseClock(s string) (Clock, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return Clock{civil.TimeOf(t)}, nil
	}

	t, err := civil.ParseTime(s)
	if err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock{t}, nil
}

// Offset возвращает смещение от полуночи
func (c Clock) Offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour +
		time.Duration(c.Minute)*time.Minute +
		time.Duration(c.Second)*time.Second +
		time.Duration(c.Nanosecond)
}

// Before сообщает, что c раньше other
func (c Clock) Before(other Clock) bool {
	return c.Offset() < other.Offset()
}

// Equal сообщает, что время совпадает
func (c Clock) Equal(other Clock) bool {
	return c.Offset() == other.Offset()
}

// Sub возвращает c - other
func (c Clock) Sub(other Clock) time.Duration {
	return c.Offset() - other.Offset()
}

// String рендерит "HH:MM", секунды добавляются только если они есть
func (c Clock) String() string {
	if c.Second == 0 && c.Nanosecond == 0 {
		return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
	}
	return c.Time.String()
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(data []byte) error {
	parsed, err := ParseClock(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
