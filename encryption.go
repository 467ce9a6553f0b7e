package memo

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

// Sealed payload layout: encryptionMagic | nonce | ciphertext+tag.
var encryptionMagic = []byte("ENC1")

var (
	ErrEncryptionKey = errors.New("memo: encryption key must be 16, 24, or 32 bytes")
	ErrDecryptFailed = errors.New("memo: decrypt failed")
)

// payloadSealer binds each payload to the entry key it is stored under, so
// a sealed value copied to another key does not open.
type payloadSealer struct {
	aead cipher.AEAD
}

func newPayloadSealer(key []byte) (*payloadSealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionKey
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("memo: init gcm: %w", err)
	}
	return &payloadSealer{aead: aead}, nil
}

func (p *payloadSealer) seal(entryKey string, plain []byte) ([]byte, error) {
	headerLen := len(encryptionMagic) + p.aead.NonceSize()
	out := make([]byte, headerLen, headerLen+len(plain)+p.aead.Overhead())
	copy(out, encryptionMagic)
	if _, err := rand.Read(out[len(encryptionMagic):headerLen]); err != nil {
		return nil, fmt.Errorf("memo: read nonce: %w", err)
	}
	return p.aead.Seal(out, out[len(encryptionMagic):headerLen], plain, []byte(entryKey)), nil
}

func (p *payloadSealer) open(entryKey string, sealed []byte) ([]byte, error) {
	headerLen := len(encryptionMagic) + p.aead.NonceSize()
	if len(sealed) < headerLen+p.aead.Overhead() || !bytes.HasPrefix(sealed, encryptionMagic) {
		return nil, ErrDecryptFailed
	}
	plain, err := p.aead.Open(nil, sealed[len(encryptionMagic):headerLen], sealed[headerLen:], []byte(entryKey))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// encryptingStore seals values on Set and opens them on Get. Exists and the
// refresh marker's presence check see only the inner store.
type encryptingStore struct {
	inner  Store
	sealer *payloadSealer
}

// newEncryptingStore returns inner unchanged when no key is configured.
func newEncryptingStore(inner Store, key []byte) (Store, error) {
	if len(key) == 0 {
		return inner, nil
	}
	sealer, err := newPayloadSealer(key)
	if err != nil {
		return nil, err
	}
	return &encryptingStore{inner: inner, sealer: sealer}, nil
}

func (s *encryptingStore) Driver() Driver                  { return s.inner.Driver() }
func (s *encryptingStore) Ready(ctx context.Context) error { return s.inner.Ready(ctx) }

func (s *encryptingStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.inner.Exists(ctx, key)
}

func (s *encryptingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := s.sealer.open(key, sealed)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}

func (s *encryptingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	sealed, err := s.sealer.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed, ttl)
}
