// Package notify доставляет уведомления о бронированиях.
// Ошибки доставки только логируются и никогда не отменяют бронирование.
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message одно уведомление одному получателю
type Message struct {
	ID        uuid.UUID
	Recipient string // логин (mail) получателя
	Subject   string
	Body      string
}

// NewMessage создаёт уведомление с новым ID
func NewMessage(recipient, subject, body string) Message {
	return Message{
		ID:        uuid.New(),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	}
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier пишет уведомления в лог
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("Notification",
		zap.String("notification_id", msg.ID.String()),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

type multi []Notifier

// Multi рассылает уведомление во все каналы и собирает их ошибки
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
