package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/quillpub/quillpub/internal/federation"
	"github.com/quillpub/quillpub/internal/models"
	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/service"
	"github.com/quillpub/quillpub/internal/transfer"
)

type NoteHandler struct {
	sync  service.SyncService
	notes service.NoteService
	acc   repository.AccountRepository
	ns    repository.NoteSourceRepository
	pr    repository.PostRepository
}

func NewNoteHandler(
	sync service.SyncService,
	notes service.NoteService,
	acc repository.AccountRepository,
	ns repository.NoteSourceRepository,
	pr repository.PostRepository) *NoteHandler {
	return &NoteHandler{sync: sync, notes: notes, acc: acc, ns: ns, pr: pr}
}

func (h *NoteHandler) CreateNote(c *fiber.Ctx) error {
	accountID := GetAccountID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	content := c.FormValue("content")
	if content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content cannot be empty",
		})
	}

	visibility := c.FormValue("visibility", models.VisibilityPublic)
	switch visibility {
	case models.VisibilityPublic, models.VisibilityUnlisted, models.VisibilityFollowers, models.VisibilityDirect:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown visibility",
		})
	}

	var tags []string
	if tagsString := c.FormValue("tags"); tagsString != "" {
		if err := json.Unmarshal([]byte(tagsString), &tags); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid tags format",
			})
		}
	}

	var replyTarget *models.Post
	if replyTargetID := c.FormValue("reply_target_id"); replyTargetID != "" {
		replyTarget, err = h.pr.GetByID(c.Context(), replyTargetID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unable to resolve reply target",
			})
		}
		if replyTarget == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Reply target not found",
			})
		}
	}

	var media []transfer.MediaUpload
	for i, file := range form.File["files"] {
		fileContent, err := file.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to open uploaded file",
			})
		}
		blob, err := io.ReadAll(fileContent)
		fileContent.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to read uploaded file",
			})
		}
		media = append(media, transfer.MediaUpload{
			Blob: blob,
			Alt:  c.FormValue(fmt.Sprintf("alt_%d", i)),
		})
	}

	source := &models.NoteSource{
		ID:         c.FormValue("id"),
		AccountID:  accountID,
		Content:    content,
		Tags:       tags,
		Visibility: visibility,
		Language:   c.FormValue("language", "en"),
	}

	post, err := h.sync.PublishNew(c.Context(), source, media, replyTarget)
	if err != nil && !errors.Is(err, federation.ErrDispatchFailure) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if post == nil {
		// Duplicate identifier: the original insert already won.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Note already exists",
		})
	}
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"post":    post,
			"warning": "Note published but federation delivery is delayed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"post": post})
}

func (h *NoteHandler) UpdateNote(c *fiber.Ctx) error {
	accountID := GetAccountID(c)
	sourceID := c.Params("id")

	source, err := h.ns.GetByID(c.Context(), sourceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load note",
		})
	}
	if source == nil || source.AccountID != accountID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Note not found",
		})
	}

	var patch transfer.NoteSourcePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}
	if patch.Visibility != nil {
		switch *patch.Visibility {
		case models.VisibilityPublic, models.VisibilityUnlisted, models.VisibilityFollowers, models.VisibilityDirect:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown visibility",
			})
		}
	}

	post, err := h.sync.PublishUpdate(c.Context(), sourceID, &patch)
	if err != nil && !errors.Is(err, federation.ErrDispatchFailure) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if post == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Note not found",
		})
	}
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"post":    post,
			"warning": "Note updated but federation delivery is delayed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"post": post})
}

func (h *NoteHandler) GetNote(c *fiber.Ctx) error {
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

	detail, err := h.notes.GetNoteSource(c.Context(), c.Params("username"), c.Params("id"), viewer)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load note",
		})
	}
	if detail == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Note not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(detail)
}
