package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

// MaxPresentations ограничивает количество сохраненных презентаций.
// При достижении лимита самая старая вытесняется.
const MaxPresentations = 50

// maxStoreBytes ограничивает размер сериализованного документа. Превышение
// маппится на model.ErrQuotaExceeded, чтобы вызывающий мог показать
// пользователю осмысленное сообщение вместо ошибки бэкенда.
const maxStoreBytes = 4 << 20

// PresentationStore хранит именованные презентации поверх KV одним
// JSON-документом, как единый список.
type PresentationStore struct {
	kv     KV
	logger *zap.Logger
}

// NewPresentationStore создает стор поверх готового KV.
func NewPresentationStore(kv KV, logger *zap.Logger) *PresentationStore {
	return &PresentationStore{
		kv:     kv,
		logger: logger.Named("PresentationStore"),
	}
}

// Save сохраняет новую презентацию и возвращает запись с присвоенным ID.
// Имя обязательно, колода непустая и валидная. При достижении лимита
// вытесняется презентация с самым старым CreatedAt.
func (s *PresentationStore) Save(ctx context.Context, name string, slides []model.Slide) (model.SavedPresentation, error) {
	name = strings.TrimSpace(name)
	if err := validatePresentation(name, slides); err != nil {
		return model.SavedPresentation{}, err
	}

	presentations, err := s.LoadAll(ctx)
	if err != nil {
		return model.SavedPresentation{}, err
	}

	if len(presentations) >= MaxPresentations {
		sort.Slice(presentations, func(i, j int) bool {
			return presentations[i].CreatedAt.Before(presentations[j].CreatedAt)
		})
		evicted := presentations[0]
		presentations = presentations[1:]
		s.logger.Info("Presentation limit reached, evicting oldest",
			zap.String("evictedID", evicted.ID),
			zap.String("evictedName", evicted.Name))
	}

	now := time.Now().UTC()
	p := model.SavedPresentation{
		ID:        uuid.NewString(),
		Name:      name,
		Slides:    model.CloneSlides(slides),
		CreatedAt: now,
		UpdatedAt: now,
	}
	presentations = append(presentations, p)

	if err := s.persist(ctx, presentations); err != nil {
		return model.SavedPresentation{}, err
	}
	s.logger.Info("Presentation saved",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("slides", len(p.Slides)))
	return p, nil
}

// Update перезаписывает существующую презентацию. Возвращает false без
// ошибки, если записи с таким ID нет. CreatedAt сохраняется.
func (s *PresentationStore) Update(ctx context.Context, id, name string, slides []model.Slide) (bool, error) {
	name = strings.TrimSpace(name)
	if err := validatePresentation(name, slides); err != nil {
		return false, err
	}

	presentations, err := s.LoadAll(ctx)
	if err != nil {
		return false, err
	}

	for i := range presentations {
		if presentations[i].ID != id {
			continue
		}
		presentations[i].Name = name
		presentations[i].Slides = model.CloneSlides(slides)
		presentations[i].UpdatedAt = time.Now().UTC()
		if err := s.persist(ctx, presentations); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Delete удаляет презентацию. Возвращает false, если записи не было.
func (s *PresentationStore) Delete(ctx context.Context, id string) (bool, error) {
	presentations, err := s.LoadAll(ctx)
	if err != nil {
		return false, err
	}

	filtered := presentations[:0]
	for _, p := range presentations {
		if p.ID != id {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == len(presentations) {
		return false, nil
	}
	if err := s.persist(ctx, filtered); err != nil {
		return false, err
	}
	return true, nil
}

// Load возвращает презентацию по ID или model.ErrNotFound.
func (s *PresentationStore) Load(ctx context.Context, id string) (model.SavedPresentation, error) {
	presentations, err := s.LoadAll(ctx)
	if err != nil {
		return model.SavedPresentation{}, err
	}
	for _, p := range presentations {
		if p.ID == id {
			return p, nil
		}
	}
	return model.SavedPresentation{}, fmt.Errorf("%w: presentation %s", model.ErrNotFound, id)
}

// LoadAll читает все сохраненные презентации. Невалидные записи молча
// отбрасываются; полностью нечитаемый документ сбрасывает хранилище в
// пустое состояние вместо ошибки.
func (s *PresentationStore) LoadAll(ctx context.Context) ([]model.SavedPresentation, error) {
	data, err := s.kv.Get(ctx, KeyPresentations)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var parsed []model.SavedPresentation
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.logger.Warn("Stored presentations are unreadable, resetting storage", zap.Error(err))
		if delErr := s.kv.Delete(ctx, KeyPresentations); delErr != nil {
			s.logger.Error("Failed to reset corrupted presentations key", zap.Error(delErr))
		}
		return nil, nil
	}

	valid := parsed[:0]
	for _, p := range parsed {
		if p.Valid() {
			valid = append(valid, p)
		} else {
			s.logger.Warn("Dropping invalid stored presentation", zap.String("id", p.ID))
		}
	}
	return valid, nil
}

// Clear удаляет все сохраненные презентации.
func (s *PresentationStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyPresentations)
}

func (s *PresentationStore) persist(ctx context.Context, presentations []model.SavedPresentation) error {
	data, err := json.Marshal(presentations)
	if err != nil {
		return fmt.Errorf("failed to marshal presentations: %w", err)
	}
	if len(data) > maxStoreBytes {
		return fmt.Errorf("%w: presentations document is %d bytes", model.ErrQuotaExceeded, len(data))
	}
	return s.kv.Set(ctx, KeyPresentations, data)
}

func validatePresentation(name string, slides []model.Slide) error {
	if name == "" {
		return fmt.Errorf("%w: presentation name is required", model.ErrValidation)
	}
	if len(slides) == 0 {
		return fmt.Errorf("%w: presentation must have at least one slide", model.ErrValidation)
	}
	return model.ValidateSlides(slides)
}
