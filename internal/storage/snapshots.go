package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

// MaxSnapshots ограничивает длину скользящего буфера автосохранений.
const MaxSnapshots = 50

// SnapshotStore хранит автосохраненные снимки колоды поверх KV. Это не
// undo/redo лог: буфер скользящий, старые снимки вытесняются молча.
type SnapshotStore struct {
	kv     KV
	logger *zap.Logger
}

// NewSnapshotStore создает стор снимков поверх готового KV.
func NewSnapshotStore(kv KV, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		kv:     kv,
		logger: logger.Named("SnapshotStore"),
	}
}

// Append добавляет снимок текущей колоды в конец буфера. Превью
// собирается из первых заголовков. Реализует history.SnapshotWriter.
func (s *SnapshotStore) Append(ctx context.Context, slides []model.Slide) (model.HistorySnapshot, error) {
	history, err := s.List(ctx)
	if err != nil {
		return model.HistorySnapshot{}, err
	}

	snapshot := model.HistorySnapshot{
		ID:        uuid.NewString(),
		Slides:    model.CloneSlides(slides),
		Timestamp: time.Now().UTC(),
		Preview:   model.Preview(slides),
	}
	history = append(history, snapshot)
	if len(history) > MaxSnapshots {
		history = history[len(history)-MaxSnapshots:]
	}

	if err := s.persist(ctx, history); err != nil {
		return model.HistorySnapshot{}, err
	}
	s.logger.Debug("History snapshot appended",
		zap.String("id", snapshot.ID),
		zap.String("preview", snapshot.Preview))
	return snapshot, nil
}

// List возвращает все снимки от старых к новым. Нечитаемый документ
// сбрасывается в пустой буфер, чтение никогда не падает на мусоре.
func (s *SnapshotStore) List(ctx context.Context) ([]model.HistorySnapshot, error) {
	data, err := s.kv.Get(ctx, KeyHistory)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var history []model.HistorySnapshot
	if err := json.Unmarshal(data, &history); err != nil {
		s.logger.Warn("Stored history is unreadable, resetting", zap.Error(err))
		if delErr := s.kv.Delete(ctx, KeyHistory); delErr != nil {
			s.logger.Error("Failed to reset corrupted history key", zap.Error(delErr))
		}
		return nil, nil
	}
	return history, nil
}

// Delete удаляет один снимок. Возвращает false, если снимка не было.
func (s *SnapshotStore) Delete(ctx context.Context, id string) (bool, error) {
	history, err := s.List(ctx)
	if err != nil {
		return false, err
	}

	filtered := history[:0]
	for _, h := range history {
		if h.ID != id {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == len(history) {
		return false, nil
	}
	if err := s.persist(ctx, filtered); err != nil {
		return false, err
	}
	return true, nil
}

// Clear удаляет весь буфер снимков.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyHistory)
}

// ApproximateSizeBytes возвращает размер сериализованного буфера. Для
// отсутствующего или нечитаемого документа возвращается 0.
func (s *SnapshotStore) ApproximateSizeBytes(ctx context.Context) int {
	data, err := s.kv.Get(ctx, KeyHistory)
	if err != nil {
		return 0
	}
	return len(data)
}

func (s *SnapshotStore) persist(ctx context.Context, history []model.HistorySnapshot) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history snapshots: %w", err)
	}
	return s.kv.Set(ctx, KeyHistory, data)
}
