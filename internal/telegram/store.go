package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/classattendance/internal/kv"
)

const (
	chatsKey  = "telegram/chats"
	offsetKey = "telegram/updates/offset"
)

type Chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type Store struct {
	store kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{
		store: store,
	}
}

// InsertChat adds a chat or updates the one with the same id.
func (s *Store) InsertChat(ctx context.Context, chat *Chat) error {
	chats, err := s.ListChats(ctx)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(chats, func(c Chat) bool { return c.ID == chat.ID }); i >= 0 {
		chats[i] = *chat
	} else {
		chats = append(chats, *chat)
	}
	data, err := json.Marshal(chats)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, chatsKey, string(data))
}

func (s *Store) ListChats(ctx context.Context) ([]Chat, error) {
	chats := make([]Chat, 0)
	value, err := s.store.Get(ctx, chatsKey)
	if errors.Is(err, kv.ErrNotFound) {
		return chats, nil
	} else if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(value), &chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return chats, nil
}

func (s *Store) SetUpdatesOffset(ctx context.Context, offset int) error {
	return s.store.Set(ctx, offsetKey, strconv.Itoa(offset))
}

func (s *Store) GetUpdatesOffset(ctx context.Context) (int, error) {
	value, err := s.store.Get(ctx, offsetKey)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}
