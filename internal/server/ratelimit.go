package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter - скользящее окно запросов по ключу. Хранит отметки времени
// последних запросов и отбрасывает вышедшие за окно при каждой проверке.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter создает лимитер: не более limit запросов на ключ за window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow регистрирует запрос и сообщает, прошел ли он лимит.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	valid := r.clean(key)
	if len(valid) >= r.limit {
		return false
	}
	r.requests[key] = append(valid, r.now())
	return true
}

// Remaining возвращает остаток запросов в текущем окне.
func (r *RateLimiter) Remaining(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.limit - len(r.clean(key))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset сбрасывает счетчик ключа (пустой ключ - всех сразу).
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == "" {
		r.requests = make(map[string][]time.Time)
		return
	}
	delete(r.requests, key)
}

// clean отбрасывает отметки старше окна. Вызывается под мьютексом.
func (r *RateLimiter) clean(key string) []time.Time {
	cutoff := r.now().Add(-r.window)
	valid := r.requests[key][:0]
	for _, ts := range r.requests[key] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	r.requests[key] = valid
	return valid
}

// RateLimitMiddleware ограничивает запросы по IP клиента. Вешается только
// на генерационные эндпоинты, обычное редактирование не лимитируется.
func RateLimitMiddleware(limiter *RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !limiter.Allow(key) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", key),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many generation requests, try again later",
			})
			return
		}
		c.Next()
	}
}
