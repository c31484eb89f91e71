package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/service"
	"github.com/quillpub/quillpub/internal/transfer"
)

type TimelineHandler struct {
	feed service.FeedService
	acc  repository.AccountRepository
}

func NewTimelineHandler(feed service.FeedService, acc repository.AccountRepository) *TimelineHandler {
	return &TimelineHandler{feed: feed, acc: acc}
}

func (h *TimelineHandler) GetTimeline(c *fiber.Ctx) error {
	var viewer *models.Account
	if accountID := GetAccountID(c); accountID != "" {
		account, err := h.acc.GetByID(c.Context(), accountID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to resolve viewer",
			})
		}
		viewer = account
	}

	query := &transfer.FeedQuery{
		Filter:    transfer.ParseFeedFilter(c.Query("filter"), viewer != nil),
		Until:     ParseUntil(c),
		Window:    c.QueryInt("window", service.DefaultFeedWindow),
		Languages: AcceptedLanguages(c),
	}

	page, err := h.feed.Timeline(c.Context(), viewer, query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load timeline",
		})
	}

	return c.Status(fiber.StatusOK).JSON(page)
}
