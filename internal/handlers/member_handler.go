package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"member-insight-service/internal/middleware"
	"member-insight-service/internal/models"
	"member-insight-service/internal/repository"
	"member-insight-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
	}
}

func (h *MemberHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/members/:companyId/:memberId/events", h.GetMemberEvents)
	app.Get("/members/:companyId/:memberId", h.GetMember)
	app.Get("/members/:companyId", h.SearchMembers)
	app.Get("/settings/:companyId", h.GetSettings)
	app.Post("/settings/:companyId", h.UpdateSettings)
}

func (h *MemberHandler) SearchMembers(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	query := &models.MemberSearchQuery{
		CompanyID: companyID,
		Q:         c.Query("q"),
		Limit:     limit,
		Offset:    offset,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	members, totalCount, err := h.memberService.SearchMembers(ctx, query)
	if err != nil {
		log.Printf("Failed to search members: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search members",
		})
	}

	if members == nil {
		members = []*models.Member{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items": members,
		"total": totalCount,
	})
}

func (h *MemberHandler) GetMember(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	memberID := c.Params("memberId")

	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	member, err := h.memberService.GetMember(ctx, companyID, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Member not found",
			})
		}
		log.Printf("Failed to get member %s: %v", memberID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve member",
		})
	}

	return c.Status(fiber.StatusOK).JSON(member)
}

func (h *MemberHandler) GetMemberEvents(c fiber.Ctx) error {
	companyID := c.Params("companyId")
	memberID := c.Params("memberId")

	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := h.memberService.GetMemberEvents(ctx, companyID, memberID)
	if err != nil {
		log.Printf("Failed to get events for member %s: %v", memberID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve member events",
		})
	}

	if entries == nil {
		entries = []*models.EventLogEntry{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items": entries,
	})
}

func (h *MemberHandler) GetSettings(c fiber.Ctx) error {
	companyID := c.Params("companyId")

	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := h.memberService.GetSettings(ctx, companyID)
	if err != nil {
		log.Printf("Failed to get settings for company %s: %v", companyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve settings",
		})
	}

	return c.Status(fiber.StatusOK).JSON(settings)
}

func (h *MemberHandler) UpdateSettings(c fiber.Ctx) error {
	companyID := c.Params("companyId")

	session := middleware.SessionFrom(c)
	if !middleware.AuthorizeCompany(session, companyID) || session.Role != models.RoleAdmin {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req models.UpdateSettingsRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings, err := h.memberService.UpdateSettings(ctx, companyID, &req)
	if err != nil {
		log.Printf("Failed to update settings for company %s: %v", companyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update settings",
		})
	}

	return c.Status(fiber.StatusOK).JSON(settings)
}
