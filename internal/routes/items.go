package routes

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/taskhive/todo-api/internal/logging"
	"github.com/taskhive/todo-api/internal/middleware"
	"github.com/taskhive/todo-api/internal/models"
	"github.com/taskhive/todo-api/internal/store"
	apperrors "github.com/taskhive/todo-api/pkg/errors"
)

// ItemHandler handles task item CRUD. Every operation resolves the
// owner id from the verified identity exactly once and passes it to the
// store as the sole ownership filter.
type ItemHandler struct {
	items  store.ItemStore
	logger *logrus.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(items store.ItemStore, logger *logrus.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logger,
	}
}

// List returns the caller's items.
func (h *ItemHandler) List(c *fiber.Ctx) error {
	ownerID := middleware.OwnerID(c)

	items, err := h.items.ListByOwner(c.Context(), ownerID)
	if err != nil {
		logging.WithUserID(h.logger, ownerID).WithError(err).Error("Failed to list items")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Internal server error")
	}

	return c.JSON(items)
}

// Create adds an item to the caller's list. Any owner id in the body is
// discarded.
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	ownerID := middleware.OwnerID(c)

	var req models.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Invalid request body")
	}

	item, err := h.items.Create(c.Context(), ownerID, &models.Item{
		Name:       req.Name,
		IsComplete: req.IsComplete,
	})
	if err != nil {
		logging.WithUserID(h.logger, ownerID).WithError(err).Error("Failed to create item")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to create item")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": ownerID,
		"item_id": item.ID,
	}).Info("Item created")

	c.Set("Location", fmt.Sprintf("/items/%d", item.ID))
	return c.Status(fiber.StatusCreated).JSON(item)
}

// Update applies a partial patch to an owned item.
func (h *ItemHandler) Update(c *fiber.Ctx) error {
	ownerID := middleware.OwnerID(c)

	itemID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Item id must be an integer")
	}

	var patch models.ItemPatch
	if err := c.BodyParser(&patch); err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Invalid request body")
	}

	if _, err := h.items.Update(c.Context(), ownerID, int64(itemID), patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, string(apperrors.CodeNotFound), "Task not found or unauthorized")
		}
		logging.WithUserID(h.logger, ownerID).WithError(err).Error("Failed to update item")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to update item")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes an owned item and returns the deleted record.
func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	ownerID := middleware.OwnerID(c)

	itemID, err := c.ParamsInt("id")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, string(apperrors.CodeBadRequest), "Item id must be an integer")
	}

	item, err := h.items.Delete(c.Context(), ownerID, int64(itemID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, string(apperrors.CodeNotFound), "Task not found or unauthorized")
		}
		logging.WithUserID(h.logger, ownerID).WithError(err).Error("Failed to delete item")
		return respondError(c, fiber.StatusInternalServerError, string(apperrors.CodeInternalError), "Failed to delete item")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": ownerID,
		"item_id": item.ID,
	}).Info("Item deleted")

	return c.JSON(models.DeleteItemResponse{
		Message: "Deleted successfully",
		Item:    *item,
	})
}
