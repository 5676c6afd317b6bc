package app

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("store-driver", a.cfg.StoreDriver),
		zap.String("log-level", a.cfg.LogLevel))

	a.wg.Add(1)
	go a.runHTTPServer()

	a.healthChecker.SetReady(true)

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()

	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
		a.cancel()
	}
}

// waitForShutdown blocks until a termination signal arrives or a component
// cancels the app context, then runs the shutdown sequence.
func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("shutdown-context-cancelled")
	}

	return a.Shutdown()
}
