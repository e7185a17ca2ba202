package server

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"slides-server/internal/generator"
	"slides-server/internal/history"
	"slides-server/internal/pipeline"
)

// Session - одна сессия редактирования: собственная история undo/redo и
// собственный пайплайн генерации. Сессии изолированы, идентификатор
// непрозрачный и приходит от клиента.
type Session struct {
	ID       string
	Store    *history.Store
	Pipeline *pipeline.Controller
}

// SessionDeps - зависимости, общие для всех сессий.
type SessionDeps struct {
	Content          generator.ContentGenerator
	Images           generator.ImageGenerator
	Extractor        generator.URLExtractor
	Snapshots        history.SnapshotWriter
	AutoSaveDebounce time.Duration
	Hub              *Hub
	Logger           *zap.Logger
}

// SessionManager выдает сессии по ID, создавая их лениво.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     SessionDeps
}

// NewSessionManager создает менеджер сессий.
func NewSessionManager(deps SessionDeps) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// Get возвращает сессию по ID, создавая новую при первом обращении.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}

	logger := m.deps.Logger.With(zap.String("sessionID", id))
	store := history.New(logger, nil,
		history.WithAutoSave(m.deps.Snapshots, m.deps.AutoSaveDebounce))

	progress := func(p pipeline.Progress) {
		if m.deps.Hub == nil {
			return
		}
		payload, err := json.Marshal(progressEvent{Type: "progress", Progress: p})
		if err != nil {
			return
		}
		m.deps.Hub.Publish(id, payload)
	}

	s := &Session{
		ID:    id,
		Store: store,
		Pipeline: pipeline.NewController(
			m.deps.Content, m.deps.Images, m.deps.Extractor,
			store, progress, logger),
	}
	m.sessions[id] = s
	logger.Info("Session created")
	return s
}

// Close останавливает таймеры автосохранения всех сессий.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Store.Close()
	}
	m.sessions = make(map[string]*Session)
}

// progressEvent - JSON-обертка события прогресса для WebSocket.
type progressEvent struct {
	Type     string            `json:"type"`
	Progress pipeline.Progress `json:"progress"`
}
