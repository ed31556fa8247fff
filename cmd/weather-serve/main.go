package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-history/internal/api/http"
	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/scheduler"
	"github.com/i474232898/weather-history/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadServe()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	index, closeIndex, err := openIndex(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open observation index: %v", err)
	}
	defer closeIndex()

	reloader := scheduler.New(cfg.InputFile, cfg.ReloadInterval, index)
	if err := reloader.Start(); err != nil {
		log.Fatalf("failed to start reload job: %v", err)
	}
	defer reloader.Stop()

	app := newApp(index, cfg.InputFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("INFO: serving %s on :%s", cfg.InputFile, cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// openIndex returns the SQLite index when path is set and the memory index otherwise.
func openIndex(path string) (store.Index, func(), error) {
	if path == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			log.Printf("close sqlite: %v", err)
		}
	}, nil
}

func newApp(index store.Index, aggregatePath string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          errorResponse,
	})
	app.Use(recover.New(), logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "source": aggregatePath})
	})
	httpapi.RegisterRoutes(app, index, aggregatePath)
	return app
}

func errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
