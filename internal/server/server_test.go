package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slides-server/internal/export"
	"slides-server/internal/mocks"
	"slides-server/internal/model"
	"slides-server/internal/storage"
)

type testEnv struct {
	router    http.Handler
	content   *mocks.MockContentGenerator
	images    *mocks.MockImageGenerator
	extractor *mocks.MockURLExtractor
	snapshots *storage.SnapshotStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()

	kv, err := storage.NewFileKV(t.TempDir(), log)
	require.NoError(t, err)
	presentations := storage.NewPresentationStore(kv, log)
	snapshots := storage.NewSnapshotStore(kv, log)

	content := mocks.NewMockContentGenerator(t)
	images := mocks.NewMockImageGenerator(t)
	extractor := mocks.NewMockURLExtractor(t)

	hub := NewHub(log)
	sessions := NewSessionManager(SessionDeps{
		Content:          content,
		Images:           images,
		Extractor:        extractor,
		Snapshots:        snapshots,
		AutoSaveDebounce: time.Hour, // автосохранение в тестах не должно срабатывать
		Hub:              hub,
		Logger:           log,
	})
	t.Cleanup(sessions.Close)

	handler := NewHandler(sessions, presentations, snapshots, export.NewExporter(log), log)
	router := NewRouter(RouterConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}, handler, hub, log)

	return &testEnv{
		router:    router,
		content:   content,
		images:    images,
		extractor: extractor,
		snapshots: snapshots,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, "test-session")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateApproveFlow(t *testing.T) {
	env := newTestEnv(t)

	proposal := []model.SlideContent{
		{Title: "Intro", Layout: model.LayoutTextImage, ImagePrompt: "sunrise"},
		{Title: "Outro", Layout: model.LayoutTextOnly},
	}
	env.content.On("GenerateSlides", mock.Anything, "my source text").
		Return(proposal, nil).Once()
	env.images.On("GenerateImage", mock.Anything, mock.Anything).
		Return("data:image/png;base64,aWNvbg==", nil).Once()

	w := env.do(t, http.MethodPost, "/api/generate", h{
		"sourceText": "my source text",
		"style":      "watercolor",
		"theme":      "blue-cyan",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Предложение видно, колода еще пустая.
	w = env.do(t, http.MethodGet, "/api/proposal", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/slides", nil)
	state := decode[map[string]json.RawMessage](t, w)
	var slides []model.Slide
	require.NoError(t, json.Unmarshal(state["slides"], &slides))
	assert.Empty(t, slides)

	// Подтверждение реализует изображения и коммитит колоду.
	w = env.do(t, http.MethodPost, "/api/proposal/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/slides", nil)
	state = decode[map[string]json.RawMessage](t, w)
	require.NoError(t, json.Unmarshal(state["slides"], &slides))
	require.Len(t, slides, 2)
	assert.Equal(t, "data:image/png;base64,aWNvbg==", slides[0].ImageURL)

	// Повторное подтверждение без предложения.
	w = env.do(t, http.MethodPost, "/api/proposal/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveWithEditedSlides(t *testing.T) {
	env := newTestEnv(t)

	proposal := []model.SlideContent{
		{Title: "Draft", Layout: model.LayoutTextOnly},
	}
	env.content.On("GenerateSlides", mock.Anything, mock.Anything).
		Return(proposal, nil).Once()

	w := env.do(t, http.MethodPost, "/api/generate", h{"sourceText": "text"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Клиент правит предложение и подтверждает отредактированный вариант.
	w = env.do(t, http.MethodPost, "/api/proposal/approve", h{
		"slides": []h{
			{"title": "Edited", "layout": "text-only"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/slides", nil)
	state := decode[map[string]json.RawMessage](t, w)
	var slides []model.Slide
	require.NoError(t, json.Unmarshal(state["slides"], &slides))
	require.Len(t, slides, 1)
	assert.Equal(t, "Edited", slides[0].Title)
}

func TestGenerateFromURL_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/generate/url", h{
		"url": "https://www.youtube.com/watch?v=xyz",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[map[string]string](t, w)
	assert.Equal(t, "youtube", resp["urlType"])
}

func TestSlideMutationsAndUndo(t *testing.T) {
	env := newTestEnv(t)

	deck := []model.Slide{
		{Title: "One", Layout: model.LayoutTextOnly},
		{Title: "Two", Layout: model.LayoutTextOnly},
	}
	w := env.do(t, http.MethodPut, "/api/slides", h{"slides": deck})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/slides/0/duplicate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]json.RawMessage](t, w)
	var slides []model.Slide
	require.NoError(t, json.Unmarshal(resp["slides"], &slides))
	require.Len(t, slides, 3)
	assert.Equal(t, "One (copy)", slides[1].Title)

	w = env.do(t, http.MethodPost, "/api/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[map[string]json.RawMessage](t, w)
	require.NoError(t, json.Unmarshal(resp["slides"], &slides))
	assert.Len(t, slides, 2)

	w = env.do(t, http.MethodPost, "/api/redo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[map[string]json.RawMessage](t, w)
	require.NoError(t, json.Unmarshal(resp["slides"], &slides))
	assert.Len(t, slides, 3)

	// Невалидная колода отклоняется до коммита.
	w = env.do(t, http.MethodPut, "/api/slides", h{
		"slides": []model.Slide{{Title: "", Layout: model.LayoutTextOnly}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresentationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	deck := []model.Slide{{Title: "Saved", Layout: model.LayoutTextOnly}}
	w := env.do(t, http.MethodPost, "/api/presentations", h{"name": "My deck", "slides": deck})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[model.SavedPresentation](t, w)
	require.NotEmpty(t, saved.ID)

	w = env.do(t, http.MethodGet, "/api/presentations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Загрузка в сессию делает колоду текущей.
	w = env.do(t, http.MethodPost, "/api/presentations/"+saved.ID+"/load", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/slides", nil)
	state := decode[map[string]json.RawMessage](t, w)
	var slides []model.Slide
	require.NoError(t, json.Unmarshal(state["slides"], &slides))
	require.Len(t, slides, 1)
	assert.Equal(t, "Saved", slides[0].Title)

	w = env.do(t, http.MethodDelete, "/api/presentations/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/presentations/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnapshotEndpoints(t *testing.T) {
	env := newTestEnv(t)

	snap, err := env.snapshots.Append(context.Background(),
		[]model.Slide{{Title: "Snap", Layout: model.LayoutTextOnly}})
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/history/"+snap.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/export/pptx", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "пустую колоду не экспортируем")

	deck := []model.Slide{{Title: "One", Layout: model.LayoutTextOnly}}
	w = env.do(t, http.MethodPut, "/api/slides", h{"slides": deck})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/export/pptx?title=Deck", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Deck.pptx")
	assert.Equal(t, []byte{'P', 'K'}, w.Body.Bytes()[:2])

	w = env.do(t, http.MethodGet, "/api/export/docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)

	deck := []model.Slide{{Title: "Mine", Layout: model.LayoutTextOnly}}
	w := env.do(t, http.MethodPut, "/api/slides", h{"slides": deck})
	require.Equal(t, http.StatusOK, w.Code)

	// Другая сессия видит пустую колоду.
	req := httptest.NewRequest(http.MethodGet, "/api/slides", nil)
	req.Header.Set(sessionHeader, "other-session")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[map[string]json.RawMessage](t, rec)
	var slides []model.Slide
	require.NoError(t, json.Unmarshal(state["slides"], &slides))
	assert.Empty(t, slides)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	base := time.Now()
	rl.now = func() time.Time { return base }

	assert.True(t, rl.Allow("ip"))
	assert.True(t, rl.Allow("ip"))
	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))
	assert.Equal(t, 0, rl.Remaining("ip"))

	// Другой ключ лимит не делит.
	assert.True(t, rl.Allow("other"))

	// Окно скользит: спустя минуту старые отметки не считаются.
	rl.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, rl.Allow("ip"))
	assert.Equal(t, 2, rl.Remaining("ip"))

	rl.Reset("")
	assert.Equal(t, 3, rl.Remaining("ip"))
}

func TestRateLimitMiddleware(t *testing.T) {
	log := zap.NewNop()
	kv, err := storage.NewFileKV(t.TempDir(), log)
	require.NoError(t, err)

	content := mocks.NewMockContentGenerator(t)
	content.On("GenerateSlides", mock.Anything, mock.Anything).
		Return(nil, model.ErrValidation).Maybe()

	hub := NewHub(log)
	sessions := NewSessionManager(SessionDeps{
		Content:          content,
		Images:           mocks.NewMockImageGenerator(t),
		Extractor:        mocks.NewMockURLExtractor(t),
		Snapshots:        storage.NewSnapshotStore(kv, log),
		AutoSaveDebounce: time.Hour,
		Hub:              hub,
		Logger:           log,
	})
	t.Cleanup(sessions.Close)

	handler := NewHandler(sessions,
		storage.NewPresentationStore(kv, log),
		storage.NewSnapshotStore(kv, log),
		export.NewExporter(log), log)
	router := NewRouter(RouterConfig{
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
	}, handler, hub, log)

	body := []byte(`{"sourceText":""}`)
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body)))
	// Первый запрос проходит лимит (и падает на пустом тексте).
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body)))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

// h сокращает литералы тел запросов.
type h = map[string]any
