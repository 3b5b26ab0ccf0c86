package telegram

import (
	"context"
	"testing"

	"github.com/classattendance/internal/kv"
	"github.com/dgraph-io/badger/v4"
)

func newKV(t *testing.T) kv.Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return kv.NewBadger(db)
}

func TestStore(t *testing.T) {
	store := NewStore(newKV(t))

	chats := []Chat{
		{ID: 1, FirstName: "chat1"},
		{ID: 2, FirstName: "chat2"},
	}

	ctx := context.Background()

	for _, chat := range chats {
		if err := store.InsertChat(ctx, &chat); err != nil {
			t.Fatalf("failed to insert chat: %v", err)
		}
	}

	// inserting again replaces the chat instead of adding a second one
	renamed := Chat{ID: 2, FirstName: "renamed"}
	if err := store.InsertChat(ctx, &renamed); err != nil {
		t.Fatalf("failed to insert chat: %v", err)
	}
	chats[1] = renamed

	listed, err := store.ListChats(ctx)
	if err != nil {
		t.Fatalf("failed to list chats: %v", err)
	}

	if len(listed) != len(chats) {
		t.Fatalf("expected %d chats, got %d", len(chats), len(listed))
	}

	for i, chat := range chats {
		if chat != listed[i] {
			t.Fatalf("expected %v, got %v", chat, listed[i])
		}
	}
}

func TestUpdatesOffset(t *testing.T) {
	store := NewStore(newKV(t))

	ctx := context.Background()

	offset, err := store.GetUpdatesOffset(ctx)
	if err != nil {
		t.Fatalf("failed to get initial offset: %v", err)
	}
	if offset != 0 {
		t.Fatalf("expected 0, got %d", offset)
	}

	if err := store.SetUpdatesOffset(ctx, 100); err != nil {
		t.Fatalf("failed to set updates offset: %v", err)
	}

	offset, err = store.GetUpdatesOffset(ctx)
	if err != nil {
		t.Fatalf("failed to get updates offset: %v", err)
	}

	if offset != 100 {
		t.Fatalf("expected 100, got %d", offset)
	}
}
