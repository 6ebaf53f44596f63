package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// MessageSender часть *bot.Bot, нужная для отправки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// ChatResolver находит Telegram-чат пользователя по логину
type ChatResolver interface {
	ChatIDByLogin(ctx context.Context, login string) (chatID int64, ok bool, err error)
}

// TelegramNotifier отправляет уведомления в привязанный Telegram-чат.
// Получатели без привязанного чата пропускаются.
type TelegramNotifier struct {
	sender MessageSender
	chats  ChatResolver
	logger *zap.Logger
}

func NewTelegramNotifier(sender MessageSender, chats ChatResolver, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chats:  chats,
		logger: logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	chatID, ok, err := n.chats.ChatIDByLogin(ctx, msg.Recipient)
	if err != nil {
		return fmt.Errorf("resolve telegram chat: %w", err)
	}
	if !ok {
		n.logger.Debug("No telegram chat linked, skipping",
			zap.String("recipient", msg.Recipient),
			zap.String("notification_id", msg.ID.String()))
		return nil
	}

	_, err = n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   msg.Subject + "\n\n" + msg.Body,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Info("Telegram notification sent",
		zap.String("notification_id", msg.ID.String()),
		zap.Int64("chat_id", chatID))

	return nil
}
