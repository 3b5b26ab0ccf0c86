package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var _ slog.Handler = &SlogHandler{}

type broadcaster interface {
	BroadcastSlogRecord(context.Context, slog.Record) error
}

// SlogHandler forwards every record to next and additionally broadcasts
// warnings and errors to Telegram.
type SlogHandler struct {
	bot  broadcaster
	next slog.Handler
	mu   *sync.Mutex
}

func NewSlogHandler(bot broadcaster, next slog.Handler) *SlogHandler {
	return &SlogHandler{
		bot:  bot,
		next: next,
		mu:   &sync.Mutex{},
	}
}

func (h *SlogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= slog.LevelWarn || h.next.Enabled(ctx, l)
}

func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if r.Level < slog.LevelWarn {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if broadcastErr := h.bot.BroadcastSlogRecord(ctx, r); broadcastErr != nil {
		return errors.Join(err, fmt.Errorf("broadcast: %w", broadcastErr))
	}
	return err
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{bot: h.bot, next: h.next.WithAttrs(attrs), mu: h.mu}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	return &SlogHandler{bot: h.bot, next: h.next.WithGroup(name), mu: h.mu}
}
