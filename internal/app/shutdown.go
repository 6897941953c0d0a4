package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chsld-scraper/internal/observability"
)

// GracefulShutdown возвращает context, который отменяется по SIGINT/SIGTERM.
// Уже закэшированные страницы остаются на диске, прерванный запуск продолжится с того же места.
func GracefulShutdown(logger *observability.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Канал для сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
