// Package controller Telegram-бот для привязки чата к учётной записи.
// Сам бот только подсказывает ID чата; уведомления отправляет notify.TelegramNotifier.
package controller

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewBotController(botInstance *bot.Bot, logger *zap.Logger) *BotController {
	return &BotController{
		bot:    botInstance,
		logger: logger,
	}
}

// RegisterHandlers регистрирует обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "Show chat id for notifications"},
		{Command: "help", Description: "How to link this chat"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling; блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot")
	c.bot.Start(ctx)
}

func startText(chatID int64, firstName string) string {
	return fmt.Sprintf(
		"Hello, %s!\n\n"+
			"Your chat id is %d.\n"+
			"Set it as telegramChatId in your profile (PUT /user/student) "+
			"to receive meeting notifications here.",
		firstName, chatID,
	)
}

const helpText = "Meeting notifications are delivered to the chat linked to your account.\n\n" +
	"/start - show the id of this chat\n" +
	"/help - show this message"

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	c.reply(ctx, b, update.Message.Chat.ID, startText(update.Message.Chat.ID, firstName))
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, b, update.Message.Chat.ID, helpText)
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
