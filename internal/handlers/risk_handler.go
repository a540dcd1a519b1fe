package handlers

import (
	"context"
	"log"
	"time"

	"member-insight-service/internal/middleware"
	"member-insight-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type RiskHandler struct {
	riskService *services.RiskService
}

func NewRiskHandler(riskService *services.RiskService) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
	}
}

func (h *RiskHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/risk/:companyId", h.GetRiskRanking)
}

// GetRiskRanking returns the company's members ranked by descending risk.
// A degraded (locally computed) ranking is still a 200; the fallback flag
// tells the caller which path produced it.
func (h *RiskHandler) GetRiskRanking(c fiber.Ctx) error {
	companyID := c.Params("companyId")

	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ranked, degraded, err := h.riskService.ScoreCompany(ctx, companyID)
	if err != nil {
		log.Printf("Failed to score members for company %s: %v", companyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to score members",
		})
	}

	response := fiber.Map{
		"items": ranked,
	}
	if degraded {
		response["fallback"] = true
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
