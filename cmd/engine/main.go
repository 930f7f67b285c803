package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Victor-armando18/pedimento-rules/internal/config"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/diff"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/jsonlogic"
	"github.com/Victor-armando18/pedimento-rules/internal/infrastructure/persistence"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces/httpapi"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase/sequence"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := persistence.Open(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database unavailable", "error", err)
	}

	ctx := context.Background()
	catalogs := persistence.NewCatalogRepo(db, log)
	if cfg.SeedPath != "" {
		seed, err := infrastructure.NewFileCatalogLoader(cfg.SeedPath).Load(ctx)
		if err != nil {
			log.Fatal("seed catalog rejected", "path", cfg.SeedPath, "error", err)
		}
		if err := catalogs.Import(dbctx.Background(ctx), seed); err != nil {
			log.Fatal("seed import failed", "path", cfg.SeedPath, "error", err)
		}
	}
	if packs, err := catalogs.ListRulepacks(dbctx.Background(ctx)); err == nil {
		for _, p := range packs {
			log.Info("rulepack available", "code", p.Code, "state", p.State, "valid_from", p.ValidFrom.Format(time.DateOnly))
		}
	}

	traces := usecase.NewTraceRecorder(persistence.NewTraceRepo(db, log), log)
	engineSvc := usecase.NewEngineService(catalogs, jsonlogic.NewEvaluator(), &diff.Differ{}, cfg.EngineOptions(), traces, log)
	if err := engineSvc.Reload(ctx); err != nil {
		log.Fatal("catalog load failed", "error", err)
	}
	allocator := sequence.NewService(db, persistence.NewSequenceRepo(db, log), log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(httpapi.RequestID())
	e.Use(httpapi.RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodPatch, http.MethodOptions, http.MethodGet},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, httpapi.HeaderActor},
	}))
	e.Use(httpapi.Actor())

	httpapi.NewHandler(engineSvc, allocator, log).Register(e)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
