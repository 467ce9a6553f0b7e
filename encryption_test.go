package memo

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptingStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryStore(time.Minute, 0)
	store, err := newEncryptingStore(inner, testEncryptionKey)
	if err != nil {
		t.Fatalf("encrypting store: %v", err)
	}
	if err := store.Set(ctx, "k", []byte("secret"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, ok, _ := inner.Get(ctx, "k")
	if !ok || !bytes.HasPrefix(raw, encryptionMagic) || bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("expected sealed payload in the inner store: %q", raw)
	}
	body, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(body) != "secret" {
		t.Fatalf("unexpected get: %q ok=%v err=%v", body, ok, err)
	}
}

func TestEncryptingStoreBindsEntryKey(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryStore(time.Minute, 0)
	store, _ := newEncryptingStore(inner, testEncryptionKey)
	if err := store.Set(ctx, "a", []byte("secret"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, _, _ := inner.Get(ctx, "a")
	_ = inner.Set(ctx, "b", raw, time.Minute)
	if _, _, err := store.Get(ctx, "b"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected payload moved to another key to fail, got %v", err)
	}
}

func TestEncryptingStoreRejectsForeignPayloads(t *testing.T) {
	ctx := context.Background()
	inner := newMemoryStore(time.Minute, 0)
	store, _ := newEncryptingStore(inner, testEncryptionKey)
	_ = inner.Set(ctx, "plain", []byte("not sealed"), time.Minute)
	if _, _, err := store.Get(ctx, "plain"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected unsealed payload to fail, got %v", err)
	}

	other, _ := newEncryptingStore(inner, []byte("fedcba9876543210"))
	if err := other.Set(ctx, "k", []byte("secret"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected wrong key to fail, got %v", err)
	}
}

func TestEncryptingStoreKeyValidation(t *testing.T) {
	inner := newMemoryStore(time.Minute, 0)
	if _, err := newEncryptingStore(inner, []byte("short")); !errors.Is(err, ErrEncryptionKey) {
		t.Fatalf("expected key length error, got %v", err)
	}
	store, err := newEncryptingStore(inner, nil)
	if err != nil || store != Store(inner) {
		t.Fatalf("expected no key to leave the store unwrapped")
	}
}

func TestPayloadSealerRejectsDamagedPayloads(t *testing.T) {
	sealer, err := newPayloadSealer(testEncryptionKey)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	sealed, err := sealer.seal("k", []byte("secret"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if plain, err := sealer.open("k", sealed); err != nil || string(plain) != "secret" {
		t.Fatalf("open = %q, %v", plain, err)
	}
	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xff
	for name, in := range map[string][]byte{
		"truncated": sealed[:len(encryptionMagic)+4],
		"tampered":  tampered,
		"empty":     nil,
	} {
		if _, err := sealer.open("k", in); !errors.Is(err, ErrDecryptFailed) {
			t.Fatalf("%s: expected decrypt failure, got %v", name, err)
		}
	}
}
