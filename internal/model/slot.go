package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// SlotDuration единственная допустимая длина встречи
const SlotDuration = 15 * time.Minute

// Slot встреча ментора, свободная или занятая одним студентом
type Slot struct {
	ID        int64      `json:"id"`
	Date      civil.Date `json:"date"`
	StartTime Clock      `json:"startTime"`
	EndTime   Clock      `json:"endTime"`
	MentorID  int64      `json:"mentorId"`
	StudentID *int64     `json:"studentId,omitempty"` // nil пока слот свободен
	CreatedAt time.Time  `json:"-"`
}

// IsBooked проверяет, занят ли слот
func (s *Slot) IsBooked() bool {
	return s.StudentID != nil
}

// Overlaps проверяет пересечение с кандидатом на ту же дату.
// Кандидат пересекается, если его начало или конец строго внутри
// существующего интервала либо начала совпадают.
func (s *Slot) Overlaps(date civil.Date, start, end Clock) bool {
	if s.Date != date {
		return false
	}

	if s.StartTime.Before(start) && start.Before(s.EndTime) {
		return true
	}
	if s.StartTime.Before(end) && end.Before(s.EndTime) {
		return true
	}
	return s.StartTime.Equal(start)
}

// SlotInput запрос на создание или бронирование слота.
// Указатели отличают "поле не передано" от нулевого значения.
type SlotInput struct {
	ID        *int64      `json:"id,omitempty"`
	Date      *civil.Date `json:"date,omitempty"`
	StartTime *Clock      `json:"startTime,omitempty"`
	EndTime   *Clock      `json:"endTime,omitempty"`
	MentorID  *int64      `json:"mentorId,omitempty"`
	StudentID *int64      `json:"studentId,omitempty"`
}
