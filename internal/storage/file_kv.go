package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Compile-time check to ensure fileKV implements KV
var _ KV = (*fileKV)(nil)

// fileKV хранит каждый ключ в отдельном JSON-файле. Запись идет через
// временный файл и os.Rename, чтобы читатель никогда не увидел
// полузаписанный документ даже при падении процесса.
type fileKV struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileKV создает файловое KV в каталоге dir (создается при необходимости).
// Это дефолтный бэкенд для запуска без Redis.
func NewFileKV(dir string, logger *zap.Logger) (KV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &fileKV{
		dir:    dir,
		logger: logger.Named("FileKV"),
	}, nil
}

// path превращает ключ в имя файла. Двоеточия в ключах заменяются, чтобы
// имена оставались переносимыми.
func (f *fileKV) path(key string) string {
	name := strings.ReplaceAll(key, ":", "_") + ".json"
	return filepath.Join(f.dir, name)
}

func (f *fileKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		f.logger.Error("Failed to read storage file", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read storage file for key %s: %w", key, err)
	}
	return data, nil
}

func (f *fileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for key %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for key %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		f.logger.Error("Failed to replace storage file", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to replace storage file for key %s: %w", key, err)
	}

	f.logger.Debug("Key stored on disk", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (f *fileKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete storage file for key %s: %w", key, err)
	}
	return nil
}
