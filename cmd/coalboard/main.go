package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/coalboard/coalboard/internal/config"
	"github.com/coalboard/coalboard/internal/httpapi"
	"github.com/coalboard/coalboard/internal/logging"
	"github.com/coalboard/coalboard/internal/registry"
	"github.com/coalboard/coalboard/internal/session"
	"github.com/coalboard/coalboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	reg, err := registry.Load(cfg.RegistryFile, cfg.DataDir, cfg.DefaultDays, logger)
	if err != nil {
		log.Fatalf("registry error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(cfg.ScheduleFile, reg.Names(), logger)
	sess := session.Open(st, logger)
	if sess.Status() == store.StatusDefaulted {
		logger.Warn("schedule state defaulted, saved charts were not restored", "path", st.Path())
	}

	srv := httpapi.New(cfg, sess, reg, logger)
	logger.Info("coalboard listening", "addr", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
