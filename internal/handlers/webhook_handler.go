package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"member-insight-service/internal/config"
	"member-insight-service/internal/models"
	"member-insight-service/internal/services"
	"member-insight-service/internal/webhook"

	"github.com/gofiber/fiber/v3"
)

type WebhookHandler struct {
	projector *services.ProjectorService
	cfg       config.WebhookConfig
}

func NewWebhookHandler(projector *services.ProjectorService, cfg config.WebhookConfig) *WebhookHandler {
	return &WebhookHandler{
		projector: projector,
		cfg:       cfg,
	}
}

func (h *WebhookHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/webhooks/whop", h.HandleWhopWebhook)
}

// HandleWhopWebhook is the ingestion pipeline: authenticate the raw bytes,
// parse, normalize, project. Missing server credentials are a server error,
// not a client rejection. Duplicate deliveries answer 200 with updated=false.
func (h *WebhookHandler) HandleWhopWebhook(c fiber.Ctx) error {
	if h.cfg.Secret == "" || h.cfg.PublicKey == "" {
		log.Println("Webhook credentials are not configured, rejecting delivery")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook credentials not configured",
		})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty body",
		})
	}

	valid := webhook.VerifySignature(
		body,
		c.Get(webhook.PublicKeyHeader),
		c.Get(webhook.SignatureHeaderPrimary),
		c.Get(webhook.SignatureHeaderFallback),
		h.cfg.Secret,
		h.cfg.PublicKey,
	)
	if !valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	var raw models.RawWebhookEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON payload",
		})
	}

	if raw.ID == "" || raw.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook event",
		})
	}

	canonical := webhook.Normalize(raw)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := h.projector.Project(ctx, canonical)
	if err != nil {
		log.Printf("Failed to project event %s: %v", canonical.EventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process webhook event",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"eventId":  canonical.EventID,
		"memberId": result.MemberID,
		"updated":  result.Applied,
	})
}
