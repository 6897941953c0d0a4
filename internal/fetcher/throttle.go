package fetcher

import (
	"context"
	"time"
)

// Throttle applies the fixed courtesy delay before each network request.
type Throttle struct {
	sleep func(ctx context.Context, d time.Duration) error
	waits int
}

// NewThrottle создаёт ограничитель с реальным ожиданием
func NewThrottle() *Throttle {
	return &Throttle{sleep: sleepContext}
}

func (t *Throttle) Wait(ctx context.Context, d time.Duration) error {
	t.waits++
	if d <= 0 {
		return ctx.Err()
	}
	return t.sleep(ctx, d)
}

// Waits возвращает число запросов, ушедших в сеть
func (t *Throttle) Waits() int {
	return t.waits
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
