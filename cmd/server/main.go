package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/collabpad/collabpad/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load local .env (dev only).
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	config, err := server.NewConfigFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	server.SetConfig(config)

	logrus.SetLevel(server.ParseLogLevel(config.LogLevel))
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logrus.Info("Starting CollabPad server...")

	server.StartHub()

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(config.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logrus.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		logrus.WithError(err).Error("Server stopped unexpectedly")
	}

	// Stop accepting new connections first, then drain the hub. Room state
	// is in-memory only and is discarded.
	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown did not complete cleanly")
	}
	if err := server.GetHub().Shutdown(shutdownTimeout); err != nil {
		logrus.WithError(err).Warn("Hub shutdown did not complete cleanly")
	}
}
