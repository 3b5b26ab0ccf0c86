package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/classattendance/internal/metrics"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	logger   *slog.Logger
	api      *tgbotapi.BotAPI
	store    *Store
	commands *Commands
	metrics  *metrics.Metrics
}

func NewBot(
	logger *slog.Logger,
	store *Store,
	commands *Commands,
	m *metrics.Metrics,
	token string,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		logger:   logger,
		api:      api,
		store:    store,
		commands: commands,
		metrics:  m,
	}, nil
}

func (b *Bot) Broadcast(ctx context.Context, message string) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, chat := range chats {
		msg := tgbotapi.NewMessage(chat.ID, message)
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// BroadcastSlogRecord sends a log record to every registered chat.
func (b *Bot) BroadcastSlogRecord(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", r.Level, r.Message)
	r.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&sb, "\n%s=%s", attr.Key, attr.Value)
		return true
	})
	return b.Broadcast(ctx, sb.String())
}

func (b *Bot) Listen(ctx context.Context) error {
	offset, err := b.store.GetUpdatesOffset(ctx)
	if err != nil {
		return fmt.Errorf("get updates offset: %w", err)
	}
	config := tgbotapi.NewUpdate(offset)
	config.Timeout = 60
	updates := b.api.GetUpdatesChan(config)
	defer b.api.StopReceivingUpdates()
	for {
		select {
		case <-ctx.Done():
			b.logger.InfoContext(ctx, "stopping listening for telegram updates")
			return nil
		case update := <-updates:
			if update.Message != nil && update.Message.IsCommand() {
				if err := b.handleCommand(ctx, update.Message); err != nil {
					b.logger.ErrorContext(ctx, "handle command", "error", err)
				}
			}

			if err := b.store.SetUpdatesOffset(ctx, update.UpdateID+1); err != nil {
				b.logger.ErrorContext(ctx, "set updates offset", "error", err)
			}
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chat := Chat{
		ID:        message.Chat.ID,
		FirstName: message.Chat.FirstName,
	}
	reply, err := b.commands.Run(ctx, chat, message.Command(), message.CommandArguments())
	result := "ok"
	if err != nil {
		result = "error"
	}
	if b.metrics != nil {
		b.metrics.BotCommands.WithLabelValues(commandLabel(message.Command()), result).Inc()
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, reply)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
