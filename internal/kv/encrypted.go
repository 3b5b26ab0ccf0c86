package kv

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/classattendance/internal/keys"
)

var _ Store = &Encrypted{}

// Encrypted encrypts values before handing them to the next store. Keys are
// stored in the clear.
type Encrypted struct {
	next Store
	key  *keys.Key
}

func NewEncrypted(next Store, key *keys.Key) *Encrypted {
	return &Encrypted{
		next: next,
		key:  key,
	}
}

func (s *Encrypted) Get(ctx context.Context, key string) (string, error) {
	value, err := s.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode %q: %w", key, err)
	}
	plaintext, err := s.key.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt %q: %w", key, err)
	}
	return string(plaintext), nil
}

func (s *Encrypted) Set(ctx context.Context, key, value string) error {
	ciphertext, err := s.key.Encrypt([]byte(value))
	if err != nil {
		return fmt.Errorf("encrypt %q: %w", key, err)
	}
	return s.next.Set(ctx, key, base64.StdEncoding.EncodeToString(ciphertext))
}

func (s *Encrypted) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}
