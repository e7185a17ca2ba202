package generator

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryOptions настраивает повторные попытки с экспоненциальной задержкой.
type RetryOptions struct {
	MaxAttempts int           // Всего попыток, включая первую
	BaseDelay   time.Duration // Задержка перед второй попыткой
	MaxDelay    time.Duration // Потолок задержки
	Multiplier  float64
	// ShouldRetry решает, имеет ли смысл повторять после данной ошибки.
	// nil означает "повторять всегда".
	ShouldRetry func(error) bool
	// OnRetry вызывается перед каждой повторной попыткой.
	OnRetry func(err error, attempt int)
}

func (o *RetryOptions) defaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 10 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
}

// RetryWithBackoff выполняет fn с повторами. Задержка растет экспоненциально
// и получает 0-30% джиттера, чтобы повторы не синхронизировались. Отмена
// контекста прерывает ожидание и возвращает ctx.Err().
func RetryWithBackoff[T any](ctx context.Context, opts RetryOptions, fn func(ctx context.Context) (T, error)) (T, error) {
	opts.defaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == opts.MaxAttempts {
			break
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(err, attempt)
		}

		delay := time.Duration(float64(opts.BaseDelay) * math.Pow(opts.Multiplier, float64(attempt-1)))
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
		// Джиттер до 30% поверх базовой задержки
		delay += time.Duration(rand.Float64() * 0.3 * float64(delay))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
