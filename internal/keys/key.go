package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var keySize = 32 // 32 bytes for AES-256

var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Key []byte

func NewKey() (*Key, error) {
	bytes := make([]byte, keySize)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	key := Key(bytes)
	return &key, nil
}

// ParseKey accepts either a raw 16, 24 or 32 byte key or its url-safe base64
// form as printed by String.
func ParseKey(bytes []byte) (*Key, error) {
	switch len(bytes) {
	case 16, 24, 32:
		key := Key(bytes)
		return &key, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(string(bytes))
	if err != nil {
		return nil, fmt.Errorf("invalid key size: got %d, need 16, 24 or 32", len(bytes))
	}
	switch len(decoded) {
	case 16, 24, 32:
		key := Key(decoded)
		return &key, nil
	default:
		return nil, fmt.Errorf("invalid decoded key size: got %d, need 16, 24 or 32", len(decoded))
	}
}

func (k Key) String() string {
	return base64.URLEncoding.EncodeToString(k)
}

func (k Key) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals data with AES-GCM, the random nonce is prepended to the result.
func (k Key) Encrypt(data []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(data)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

func (k Key) Decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}
