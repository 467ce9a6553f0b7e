package memo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goforj/memo/memotest"
)

func newTestFileStore(t *testing.T) *fileStore {
	t.Helper()
	store, err := newFileStore(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("file store create failed: %v", err)
	}
	return store
}

func TestFileStoreContract(t *testing.T) {
	memotest.RunStoreContract(t, newTestFileStore(t), memotest.Options{})
}

func TestFileStoreExistsRemovesExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	path := store.path("k")
	now = now.Add(2 * time.Second)
	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expired get miss; ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected get to leave the file, stat err=%v", err)
	}
	if ok, err := store.Exists(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expired exists false; ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected exists to remove expired file, stat err=%v", err)
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)
	if err := os.WriteFile(store.path("bad"), []byte("garbage-record"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "bad"); !errors.Is(err, errCorruptFileRecord) {
		t.Fatalf("expected corrupt record error, got %v", err)
	}
	if ok, err := store.Exists(ctx, "bad"); err != nil || ok {
		t.Fatalf("expected corrupt record treated as absent; ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(store.path("short"), []byte("MEM"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "short"); !errors.Is(err, errCorruptFileRecord) {
		t.Fatalf("expected short record error, got %v", err)
	}
}

func TestFileStoreWriteFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	origCreate, origRename := createTempFile, renameFile
	t.Cleanup(func() { createTempFile, renameFile = origCreate, origRename })

	createTempFile = func(string, string) (*os.File, error) { return nil, errors.New("no space") }
	if err := store.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected create temp error")
	}
	createTempFile = origCreate

	renameFile = func(string, string) error { return errors.New("rename boom") }
	if err := store.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected rename error")
	}
	leftovers, _ := filepath.Glob(filepath.Join(store.dir, "memo-*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected temp files cleaned up, found %v", leftovers)
	}
}

func TestFileStoreReady(t *testing.T) {
	store := newTestFileStore(t)
	if err := store.Ready(context.Background()); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if err := os.RemoveAll(store.dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := store.Ready(context.Background()); err == nil {
		t.Fatalf("expected ready error for missing dir")
	}
}
