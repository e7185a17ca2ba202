package storage

import (
	"context"
	"errors"
)

// Ключи хранилища
const (
	KeyPresentations = "slides:presentations"
	KeyHistory       = "slides:history"
)

// ErrKeyNotFound возвращается Get'ом, когда ключа нет. Вызывающие слои
// трактуют отсутствие ключа как пустое хранилище.
var ErrKeyNotFound = errors.New("storage key not found")

// KV - минимальное key-value хранилище для сериализованных документов.
// Реализации: Redis и JSON-файлы с атомарной заменой.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
