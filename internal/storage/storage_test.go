package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slides-server/internal/model"
)

func newFileKV(t *testing.T) KV {
	t.Helper()
	kv, err := NewFileKV(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return kv
}

func deck(title string) []model.Slide {
	return []model.Slide{
		{Title: title, Layout: model.LayoutTextOnly, Content: []model.ContentPoint{{Text: "point"}}},
	}
}

func TestFileKV_RoundTrip(t *testing.T) {
	kv := newFileKV(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "slides:presentations", []byte(`{"a":1}`)))
	data, err := kv.Get(ctx, "slides:presentations")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)

	// Перезапись атомарна и заменяет содержимое целиком.
	require.NoError(t, kv.Set(ctx, "slides:presentations", []byte(`{"b":2}`)))
	data, err = kv.Get(ctx, "slides:presentations")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"b":2}`), data)

	require.NoError(t, kv.Delete(ctx, "slides:presentations"))
	_, err = kv.Get(ctx, "slides:presentations")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Повторное удаление идемпотентно.
	require.NoError(t, kv.Delete(ctx, "slides:presentations"))
}

func TestFileKV_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, kv.Set(context.Background(), "k", []byte("v")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k.json", entries[0].Name())
}

func TestPresentationStore_SaveAndLoad(t *testing.T) {
	store := NewPresentationStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	p, err := store.Save(ctx, "  My Deck  ", deck("Intro"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "My Deck", p.Name, "имя сохраняется без крайних пробелов")
	assert.False(t, p.CreatedAt.IsZero())

	loaded, err := store.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, "Intro", loaded.Slides[0].Title)

	_, err = store.Load(ctx, "no-such-id")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPresentationStore_Validation(t *testing.T) {
	store := NewPresentationStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	_, err := store.Save(ctx, "   ", deck("A"))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = store.Save(ctx, "Empty", nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = store.Save(ctx, "Bad layout", []model.Slide{{Title: "T", Layout: "bogus"}})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPresentationStore_UpdateAndDelete(t *testing.T) {
	store := NewPresentationStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	p, err := store.Save(ctx, "Original", deck("One"))
	require.NoError(t, err)

	ok, err := store.Update(ctx, p.ID, "Renamed", deck("Two"))
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := store.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.Equal(t, "Two", loaded.Slides[0].Title)
	assert.Equal(t, p.CreatedAt.Unix(), loaded.CreatedAt.Unix(), "CreatedAt не меняется при обновлении")

	ok, err = store.Update(ctx, "no-such-id", "Name", deck("X"))
	require.NoError(t, err)
	assert.False(t, ok, "обновление отсутствующей записи возвращает false без ошибки")

	ok, err = store.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPresentationStore_EvictsOldestAtLimit(t *testing.T) {
	store := NewPresentationStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	var firstID string
	for i := 0; i < MaxPresentations; i++ {
		p, err := store.Save(ctx, fmt.Sprintf("Deck %d", i), deck("S"))
		require.NoError(t, err)
		if i == 0 {
			firstID = p.ID
		}
		// CreatedAt должен различаться, иначе порядок вытеснения не определен.
		time.Sleep(time.Millisecond)
	}

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, MaxPresentations)

	_, err = store.Save(ctx, "One more", deck("S"))
	require.NoError(t, err)

	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, MaxPresentations)

	_, err = store.Load(ctx, firstID)
	assert.ErrorIs(t, err, model.ErrNotFound, "вытесняется самая старая презентация")
}

func TestPresentationStore_CorruptedDocumentResets(t *testing.T) {
	kv := newFileKV(t)
	store := NewPresentationStore(kv, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, KeyPresentations, []byte("{not json")))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Ключ сброшен, последующее сохранение работает с чистого листа.
	_, err = kv.Get(ctx, KeyPresentations)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = store.Save(ctx, "Fresh", deck("A"))
	require.NoError(t, err)
}

func TestPresentationStore_DropsInvalidEntries(t *testing.T) {
	kv := newFileKV(t)
	store := NewPresentationStore(kv, zap.NewNop())
	ctx := context.Background()

	blob := `[
		{"id":"good","name":"Good","slides":[{"title":"T","layout":"text-only"}],"createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"},
		{"id":"","name":"No ID","slides":[],"createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"},
		{"id":"bad-layout","name":"Bad","slides":[{"title":"T","layout":"nope"}],"createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"}
	]`
	require.NoError(t, kv.Set(ctx, KeyPresentations, []byte(blob)))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestSnapshotStore_AppendAndList(t *testing.T) {
	store := NewSnapshotStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	snap, err := store.Append(ctx, []model.Slide{
		{Title: "Alpha", Layout: model.LayoutTextOnly},
		{Title: "Beta", Layout: model.LayoutTextOnly},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "Alpha, Beta", snap.Preview)

	history, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, snap.ID, history[0].ID)

	assert.Positive(t, store.ApproximateSizeBytes(ctx))
}

func TestSnapshotStore_SlidingWindow(t *testing.T) {
	store := NewSnapshotStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < MaxSnapshots+5; i++ {
		_, err := store.Append(ctx, deck(fmt.Sprintf("Slide %d", i)))
		require.NoError(t, err)
	}

	history, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, history, MaxSnapshots)
	assert.Equal(t, "Slide 5", history[0].Slides[0].Title, "старые снимки вытеснены")
	assert.Equal(t, fmt.Sprintf("Slide %d", MaxSnapshots+4), history[len(history)-1].Slides[0].Title)
}

func TestSnapshotStore_DeleteAndClear(t *testing.T) {
	store := NewSnapshotStore(newFileKV(t), zap.NewNop())
	ctx := context.Background()

	a, err := store.Append(ctx, deck("A"))
	require.NoError(t, err)
	_, err = store.Append(ctx, deck("B"))
	require.NoError(t, err)

	ok, err := store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	history, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Zero(t, store.ApproximateSizeBytes(ctx))
}

func TestSnapshotStore_CorruptedDocumentResets(t *testing.T) {
	kv := newFileKV(t)
	store := NewSnapshotStore(kv, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, KeyHistory, []byte("[broken")))

	history, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = kv.Get(ctx, KeyHistory)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
