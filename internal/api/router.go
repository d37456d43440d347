package api

import (
	"context"
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"fleetdocs/internal/service"
	"fleetdocs/pkg/config"
)

// SetupRouter builds the HTTP surface: the Telegram webhook and a health
// probe. All user interaction flows through the bot, so there are no other
// routes.
func SetupRouter(bot *service.BotService, cfg *config.TelegramConfig, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/telegram/webhook", func(c *fiber.Ctx) error {
		if cfg.WebhookSecret != "" {
			got := c.Get("X-Telegram-Bot-Api-Secret-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.WebhookSecret)) != 1 {
				return c.SendStatus(fiber.StatusForbidden)
			}
		}

		var update service.TelegramUpdate
		if err := c.BodyParser(&update); err != nil {
			appLogger.Warn("Bad webhook payload", zap.Error(err))
			return c.SendStatus(fiber.StatusBadRequest)
		}

		// Telegram retries non-200 replies, so the update is handled off
		// the request path and always acknowledged.
		go bot.HandleUpdate(context.Background(), update)
		return c.SendStatus(fiber.StatusOK)
	})

	return app
}
