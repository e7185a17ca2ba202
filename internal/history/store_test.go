package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

func slide(title string) model.Slide {
	return model.Slide{
		Title:   title,
		Content: []model.ContentPoint{{Text: "point"}},
		Layout:  model.LayoutTextOnly,
	}
}

func titles(slides []model.Slide) []string {
	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = s.Title
	}
	return out
}

func newStore(t *testing.T, initial ...model.Slide) *Store {
	t.Helper()
	s := New(zap.NewNop(), initial)
	t.Cleanup(s.Close)
	return s
}

func TestStore_UndoRedoRoundTrip(t *testing.T) {
	s := newStore(t, slide("A"))

	s.AddSlide(slide("B"))
	after := titles(s.Slides())

	s.Undo()
	assert.Equal(t, []string{"A"}, titles(s.Slides()))

	s.Redo()
	assert.Equal(t, after, titles(s.Slides()))
}

func TestStore_UndoRedoBoundaries(t *testing.T) {
	s := newStore(t, slide("A"))

	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	// Undo на границе - no-op
	s.Undo()
	assert.Equal(t, []string{"A"}, titles(s.Slides()))

	s.AddSlide(slide("B"))
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	s.Undo()
	assert.False(t, s.CanUndo())
	assert.True(t, s.CanRedo())
}

func TestStore_NewMutationDiscardsRedoBranch(t *testing.T) {
	s := newStore(t, slide("A"))

	s.AddSlide(slide("B"))
	s.AddSlide(slide("C"))
	s.Undo() // обратно к [A B]
	require.True(t, s.CanRedo())

	s.AddSlide(slide("D")) // redo-ветка с C должна быть отброшена
	assert.False(t, s.CanRedo())
	assert.Equal(t, []string{"A", "B", "D"}, titles(s.Slides()))

	s.Redo() // no-op
	assert.Equal(t, []string{"A", "B", "D"}, titles(s.Slides()))
}

func TestStore_HistoryBounded(t *testing.T) {
	s := newStore(t)

	for i := 0; i < MaxHistory+10; i++ {
		s.AddSlide(slide(fmt.Sprintf("S%d", i)))
	}

	// Откатываемся до упора: доступно не более MaxHistory-1 шагов назад
	undos := 0
	for s.CanUndo() {
		s.Undo()
		undos++
		require.LessOrEqual(t, undos, MaxHistory)
	}
	assert.Equal(t, MaxHistory-1, undos)

	// Самое старое сохраненное состояние уже содержит вытесненные слайды
	assert.Equal(t, 11, s.Len())
}

func TestStore_UpdateSlide(t *testing.T) {
	s := newStore(t, slide("A"), slide("B"))

	s.UpdateSlide(1, slide("B2"))
	assert.Equal(t, []string{"A", "B2"}, titles(s.Slides()))

	// Выход за границы - no-op, состояние не меняется
	s.UpdateSlide(5, slide("X"))
	s.UpdateSlide(-1, slide("X"))
	assert.Equal(t, []string{"A", "B2"}, titles(s.Slides()))
}

func TestStore_DuplicateSlide(t *testing.T) {
	s := newStore(t, slide("A"), slide("B"))

	s.DuplicateSlide(0)
	got := s.Slides()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "A (copy)", "B"}, titles(got))

	before := titles(s.Slides())
	s.DuplicateSlide(42)
	s.DuplicateSlide(-1)
	assert.Equal(t, before, titles(s.Slides()))
}

func TestStore_RemoveSlide(t *testing.T) {
	s := newStore(t, slide("A"), slide("B"), slide("C"))

	s.RemoveSlide(1)
	assert.Equal(t, []string{"A", "C"}, titles(s.Slides()))

	s.RemoveSlide(7)
	assert.Equal(t, []string{"A", "C"}, titles(s.Slides()))
}

func TestStore_ReorderSlides(t *testing.T) {
	s := newStore(t, slide("A"), slide("B"), slide("C"))

	s.ReorderSlides(0, 2)
	assert.Equal(t, []string{"B", "C", "A"}, titles(s.Slides()))

	// Обратная перестановка восстанавливает исходный порядок
	s.ReorderSlides(2, 0)
	assert.Equal(t, []string{"A", "B", "C"}, titles(s.Slides()))

	s.ReorderSlides(0, 9) // no-op
	assert.Equal(t, []string{"A", "B", "C"}, titles(s.Slides()))
}

func TestStore_SlidesReturnsCopy(t *testing.T) {
	s := newStore(t, slide("A"))

	got := s.Slides()
	got[0].Title = "mutated"
	got[0].Content[0].Text = "mutated"

	fresh := s.Slides()
	assert.Equal(t, "A", fresh[0].Title)
	assert.Equal(t, "point", fresh[0].Content[0].Text)
}

// recordingWriter собирает снимки автосохранения.
type recordingWriter struct {
	mu        sync.Mutex
	snapshots [][]model.Slide
}

func (w *recordingWriter) Append(_ context.Context, slides []model.Slide) (model.HistorySnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, slides)
	return model.HistorySnapshot{}, nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.snapshots)
}

func TestStore_AutoSaveDebounced(t *testing.T) {
	w := &recordingWriter{}
	s := New(zap.NewNop(), nil, WithAutoSave(w, 30*time.Millisecond))
	defer s.Close()

	// Серия быстрых мутаций должна схлопнуться в одну запись
	s.AddSlide(slide("A"))
	s.AddSlide(slide("B"))
	s.AddSlide(slide("C"))

	assert.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)

	// Повторная серия - вторая запись
	s.AddSlide(slide("D"))
	assert.Eventually(t, func() bool { return w.count() == 2 }, time.Second, 5*time.Millisecond)
}
