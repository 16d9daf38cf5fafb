package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-vault/internal/app"
	"recipe-vault/internal/config"
	"recipe-vault/internal/database"
	"recipe-vault/internal/logger"
	"recipe-vault/internal/server"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		logg.Fatal("failed to initialize database", "error", err.Error())
	}
	defer db.Close()

	application := app.New(cfg, logg, db)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.New(application).Router(),
	}

	go func() {
		logg.Info("recipe-vault listening", "addr", cfg.HTTPAddr, "db", cfg.DatabasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server failed", "error", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("shutdown failed", "error", err.Error())
	}
	logg.Info("recipe-vault stopped")
}
