package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"slides-server/internal/model"
)

// MaxHistory - максимальная глубина undo/redo лога.
const MaxHistory = 20

// SnapshotWriter принимает автосохраненные снимки живой последовательности.
// Реализуется хранилищем снимков; запись fire-and-forget.
type SnapshotWriter interface {
	Append(ctx context.Context, slides []model.Slide) (model.HistorySnapshot, error)
}

// Store - единственный владелец живой последовательности слайдов.
// Каждая структурная мутация проходит через него и порождает новый
// неизменяемый снимок в линейном undo/redo логе. Store безопасен для
// конкурентного использования.
type Store struct {
	mu      sync.Mutex
	history [][]model.Slide // history[index] - текущее состояние
	index   int

	logger *zap.Logger

	// Debounce автосохранения: каждый коммит взводит таймер заново,
	// запись уходит только когда последовательность "устаканилась".
	snapshots     SnapshotWriter
	debounce      time.Duration
	debounceTimer *time.Timer
}

// Option настраивает Store.
type Option func(*Store)

// WithAutoSave включает debounced автосохранение снимков.
func WithAutoSave(w SnapshotWriter, debounce time.Duration) Option {
	return func(s *Store) {
		s.snapshots = w
		s.debounce = debounce
	}
}

// New создает Store с начальной последовательностью слайдов.
func New(logger *zap.Logger, initial []model.Slide, opts ...Option) *Store {
	s := &Store{
		history:  [][]model.Slide{model.CloneSlides(initial)},
		index:    0,
		logger:   logger.Named("HistoryStore"),
		debounce: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Slides возвращает копию текущей последовательности.
func (s *Store) Slides() []model.Slide {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSlides(s.history[s.index])
}

// Len возвращает длину текущей последовательности.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[s.index])
}

// SetSlides заменяет всю последовательность (bulk-операции: загрузка,
// результат генерации).
func (s *Store) SetSlides(slides []model.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(model.CloneSlides(slides))
}

// UpdateSlide заменяет один слайд. Выход индекса за границы - no-op:
// UI может гоняться с конкурентными правками, падать здесь нельзя.
func (s *Store) UpdateSlide(index int, slide model.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.history[s.index]
	if index < 0 || index >= len(cur) {
		s.logger.Debug("UpdateSlide: index out of range, ignoring", zap.Int("index", index))
		return
	}
	next := model.CloneSlides(cur)
	next[index] = slide.Clone()
	s.commit(next)
}

// AddSlide добавляет слайд в конец.
func (s *Store) AddSlide(slide model.Slide) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := model.CloneSlides(s.history[s.index])
	next = append(next, slide.Clone())
	s.commit(next)
}

// RemoveSlide удаляет слайд; невалидный индекс - no-op.
func (s *Store) RemoveSlide(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.history[s.index]
	if index < 0 || index >= len(cur) {
		return
	}
	next := make([]model.Slide, 0, len(cur)-1)
	for i, sl := range cur {
		if i == index {
			continue
		}
		next = append(next, sl.Clone())
	}
	s.commit(next)
}

// duplicateSuffix добавляется к заголовку копии, чтобы её можно было отличить.
const duplicateSuffix = " (copy)"

// DuplicateSlide вставляет копию слайда сразу после index; невалидный
// индекс - no-op. Слайд с невалидной структурой не дублируется.
func (s *Store) DuplicateSlide(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.history[s.index]
	if index < 0 || index >= len(cur) {
		return
	}
	if err := model.ValidateSlide(cur[index]); err != nil {
		s.logger.Warn("DuplicateSlide: refusing to duplicate invalid slide",
			zap.Int("index", index), zap.Error(err))
		return
	}

	dup := cur[index].Clone()
	dup.Title += duplicateSuffix

	next := make([]model.Slide, 0, len(cur)+1)
	next = append(next, model.CloneSlides(cur[:index+1])...)
	next = append(next, dup)
	next = append(next, model.CloneSlides(cur[index+1:])...)
	s.commit(next)
}

// ReorderSlides перемещает слайд с позиции from на позицию to, сдвигая
// остальные. Невалидные индексы - no-op.
func (s *Store) ReorderSlides(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.history[s.index]
	if from < 0 || from >= len(cur) || to < 0 || to >= len(cur) || from == to {
		return
	}

	next := model.CloneSlides(cur)
	moved := next[from]
	next = append(next[:from], next[from+1:]...)

	rest := append([]model.Slide(nil), next[to:]...)
	next = append(next[:to], moved)
	next = append(next, rest...)
	s.commit(next)
}

// Undo перемещает указатель на один шаг назад; на границе - no-op.
func (s *Store) Undo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index > 0 {
		s.index--
		s.armAutoSave()
	}
}

// Redo перемещает указатель на один шаг вперед; на границе - no-op.
func (s *Store) Redo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < len(s.history)-1 {
		s.index++
		s.armAutoSave()
	}
}

// CanUndo сообщает, возможен ли undo.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index > 0
}

// CanRedo сообщает, возможен ли redo.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index < len(s.history)-1
}

// commit добавляет новое состояние в лог: отбрасывает redo-ветку, добавляет
// снимок, двигает указатель и вытесняет самый старый снимок при переполнении.
// Вызывается строго под s.mu.
func (s *Store) commit(next []model.Slide) {
	s.history = append(s.history[:s.index+1], next)
	s.index++

	if len(s.history) > MaxHistory {
		s.history = s.history[1:]
		s.index--
	}

	s.armAutoSave()
}

// armAutoSave взводит (или перевзводит) debounce-таймер автосохранения.
// Вызывается под s.mu.
func (s *Store) armAutoSave() {
	if s.snapshots == nil {
		return
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}

	snapshot := model.CloneSlides(s.history[s.index])
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		if len(snapshot) == 0 {
			return
		}
		if _, err := s.snapshots.Append(context.Background(), snapshot); err != nil {
			// Автосохранение не должно прерывать работу, только логируем
			s.logger.Warn("Failed to write auto-save snapshot", zap.Error(err))
		}
	})
}

// Close останавливает отложенное автосохранение.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
}
