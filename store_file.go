package memo

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/xxh3"
)

var (
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
)

var errCorruptFileRecord = errors.New("memo: corrupt file record")

// fileRecordMagic prefixes every entry, followed by the big-endian expiry in
// unix nanos and the raw payload.
var fileRecordMagic = []byte("MEM1")

const fileRecordHeaderSize = 12

type fileStore struct {
	dir        string
	defaultTTL time.Duration
	now        func() time.Time
}

func newFileStore(dir string, defaultTTL time.Duration) (*fileStore, error) {
	if dir == "" {
		dir = defaultFileDir()
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultStoreTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memo: create file store dir: %w", err)
	}
	return &fileStore{
		dir:        dir,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

func (s *fileStore) Driver() Driver {
	return DriverFile
}

func (s *fileStore) Ready(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *fileStore) Exists(_ context.Context, key string) (bool, error) {
	path := s.path(key)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	var header [fileRecordHeaderSize]byte
	_, err = io.ReadFull(f, header[:])
	f.Close()
	if err != nil {
		_ = os.Remove(path)
		return false, nil
	}
	expiresAt, err := decodeFileHeader(header[:])
	if err != nil {
		_ = os.Remove(path)
		return false, nil
	}
	if s.expired(expiresAt) {
		_ = os.Remove(path)
		return false, nil
	}
	return true, nil
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) < fileRecordHeaderSize {
		return nil, false, errCorruptFileRecord
	}
	expiresAt, err := decodeFileHeader(data[:fileRecordHeaderSize])
	if err != nil {
		return nil, false, err
	}
	if s.expired(expiresAt) {
		return nil, false, nil
	}
	return data[fileRecordHeaderSize:], true, nil
}

// Set writes through a temp file and rename so readers never see a partial record.
func (s *fileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := s.now().Add(ttl).UnixNano()

	tmp, err := createTempFile(s.dir, "memo-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	var header [fileRecordHeaderSize]byte
	copy(header[:4], fileRecordMagic)
	binary.BigEndian.PutUint64(header[4:], uint64(expiresAt))

	if _, err := tmp.Write(header[:]); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := renameFile(tmpPath, s.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *fileStore) expired(expiresAt int64) bool {
	return !s.now().Before(time.Unix(0, expiresAt))
}

func (s *fileStore) path(key string) string {
	sum := xxh3.HashString128(key).Bytes()
	return filepath.Join(s.dir, fmt.Sprintf("%x.memo", sum[:]))
}

func decodeFileHeader(header []byte) (int64, error) {
	if len(header) < fileRecordHeaderSize || !bytes.Equal(header[:4], fileRecordMagic) {
		return 0, errCorruptFileRecord
	}
	return int64(binary.BigEndian.Uint64(header[4:fileRecordHeaderSize])), nil
}
