package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Phase - фаза активной задачи генерации.
type Phase string

// Фазы пайплайна генерации
const (
	PhaseIdle              Phase = "idle"
	PhaseExtractingContent Phase = "extracting-content"
	PhaseProposingContent  Phase = "proposing-content"
	PhaseAwaitingApproval  Phase = "awaiting-approval"
	PhaseRealizingImages   Phase = "realizing-images"
)

// ErrJobActive возвращается при попытке запустить вторую задачу, пока
// первая не завершилась: одновременно активна максимум одна.
var ErrJobActive = errors.New("generation job is already active")

// Progress - снимок прогресса активной задачи, публикуется после каждого
// шага. Current растет строго монотонно от 1 до Total.
type Progress struct {
	JobID   uuid.UUID `json:"jobId"`
	Phase   Phase     `json:"phase"`
	Current int       `json:"current"`
	Total   int       `json:"total"`
	Message string    `json:"message,omitempty"`
}

// ProgressFunc получает обновления прогресса. Вызывается синхронно из
// пайплайна, реализация не должна блокироваться надолго.
type ProgressFunc func(Progress)

// job - состояние одной активной задачи. Не персистится.
type job struct {
	id        uuid.UUID
	phase     Phase
	current   int
	total     int
	cancel    context.CancelFunc
	startedAt time.Time
}

// jobTracker следит за единственной активной задачей генерации и ее
// кооперативной отменой. Отмена - это отмена контекста задачи; сам
// пайплайн проверяет контекст после каждой точки ожидания.
type jobTracker struct {
	mu       sync.Mutex
	active   *job
	progress ProgressFunc
}

func newJobTracker(progress ProgressFunc) *jobTracker {
	return &jobTracker{progress: progress}
}

// begin регистрирует новую задачу. Если задача уже активна, возвращает
// ErrJobActive: interleaving двух прогонов не определен и запрещен.
func (t *jobTracker) begin(ctx context.Context, phase Phase) (context.Context, *job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return nil, nil, ErrJobActive
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{
		id:        uuid.New(),
		phase:     phase,
		cancel:    cancel,
		startedAt: time.Now(),
	}
	t.active = j

	log.Info().
		Str("jobID", j.id.String()).
		Str("phase", string(phase)).
		Msg("Generation job started")
	return jobCtx, j, nil
}

// finish снимает задачу с учета и освобождает ее контекст.
func (t *jobTracker) finish(j *job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != j {
		return
	}
	j.cancel()
	t.active = nil

	log.Info().
		Str("jobID", j.id.String()).
		Dur("elapsed", time.Since(j.startedAt)).
		Msg("Generation job finished")
}

// cancelActive отменяет активную задачу, если она есть. Отмена - не
// ошибка: пайплайн молча сбрасывается в Idle.
func (t *jobTracker) cancelActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil {
		return false
	}
	log.Info().Str("jobID", t.active.id.String()).Msg("Generation job canceled by user")
	t.active.cancel()
	return true
}

// phaseOf возвращает фазу активной задачи (PhaseIdle если задачи нет).
func (t *jobTracker) phaseOf() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return PhaseIdle
	}
	return t.active.phase
}

// update меняет фазу/прогресс задачи и публикует снимок.
func (t *jobTracker) update(j *job, phase Phase, current, total int, message string) {
	t.mu.Lock()
	j.phase = phase
	j.current = current
	j.total = total
	snapshot := Progress{
		JobID:   j.id,
		Phase:   phase,
		Current: current,
		Total:   total,
		Message: message,
	}
	progress := t.progress
	t.mu.Unlock()

	log.Debug().
		Str("jobID", snapshot.JobID.String()).
		Str("phase", string(phase)).
		Int("current", current).
		Int("total", total).
		Msg("Job progress")

	if progress != nil {
		progress(snapshot)
	}
}
