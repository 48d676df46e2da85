// Package server exposes the scheduling engine over HTTP for the admin
// UI. Authentication sits in front of this service and is not handled
// here.
package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func New(handlers *Handlers, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "todaibansou-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the /events stream stays open
	})

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("Request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
		return err
	})

	handlers.Register(app)
	return app
}
