package service

import (
	"strings"

	"github.com/Freeeeeet/mentoring/internal/model"
	"github.com/Freeeeeet/mentoring/internal/notify"
)

const (
	subjectStudentBooked = "Confirmation for meeting reservation"
	subjectMentorBooked  = "New meeting reservation"
	subjectCancelled     = "Meeting cancelled"

	messageFooter = "Note: This message was generated automatically by Mentoring Application\n"
)

// slotDetails дата и интервал встречи
func slotDetails(b *strings.Builder, slot *model.Slot) {
	b.WriteString("Date: ")
	b.WriteString(slot.Date.String())
	b.WriteString("\nTime: ")
	b.WriteString(slot.StartTime.String())
	b.WriteByte('-')
	b.WriteString(slot.EndTime.String())
	b.WriteString("\n\n")
}

// bookingMessage текст уведомления о бронировании для получателя с ролью recipient.Role
func bookingMessage(slot *model.Slot, recipient, student *model.User) notify.Message {
	var b strings.Builder
	b.WriteString("Hello!\n\n")

	subject := subjectStudentBooked
	switch recipient.Role {
	case model.RoleMentor:
		subject = subjectMentorBooked
		b.WriteString("Student: ")
		b.WriteString(student.FullName())
		b.WriteString(" booked a meeting at:\n\n")
	case model.RoleStudent:
		b.WriteString("You've made a reservation for a meeting at:\n\n")
	default:
		b.WriteString("Meeting details:\n\n")
	}

	slotDetails(&b, slot)
	b.WriteString(messageFooter)

	return notify.NewMessage(recipient.Mail, subject, b.String())
}

// cancellationMessage уведомление студенту об удалённой встрече
func cancellationMessage(slot *model.Slot, student *model.User) notify.Message {
	var b strings.Builder
	b.WriteString("Hello!\n\n")
	b.WriteString("Your meeting has been cancelled by the mentor:\n\n")
	slotDetails(&b, slot)
	b.WriteString(messageFooter)

	return notify.NewMessage(student.Mail, subjectCancelled, b.String())
}
