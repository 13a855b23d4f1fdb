package audit

import (
	"errors"

	"nursery-backend/internal/auth"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  datatypes.JSON     `json:"before_data"`
	AfterData   datatypes.JSON     `json:"after_data"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

const timestampLayout = "2006-01-02 15:04:05"

func ToResponse(l models.AuditLog) AuditLogResponse {
	var undoneAt *string
	if l.UndoneAt != nil {
		s := l.UndoneAt.Format(timestampLayout)
		undoneAt = &s
	}
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt.Format(timestampLayout),
		UserID:      l.UserID,
		UserName:    l.UserName,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
		BeforeData:  l.BeforeData,
		AfterData:   l.AfterData,
		IsUndone:    l.IsUndone,
		UndoneBy:    l.UndoneBy,
		UndoneAt:    undoneAt,
	}
}

// ForEntity returns the entries of one entity, newest first.
func ForEntity(db *gorm.DB, entityType string, entityID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

// GET /api/audit-logs?entity_type=invoice&entity_id=1&user_id=2
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if eid, ok, err := httpx.ParseOptionalUint(c, "entity_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("entity_id = ?", eid)
		}
		if uid, ok, err := httpx.ParseOptionalUint(c, "user_id"); err != nil {
			return err
		} else if ok {
			dbq = dbq.Where("user_id = ?", uid)
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, ToResponse(l))
		}
		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		p := auth.PrincipalFrom(c)
		if p == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		err = UndoLog(database.DB.WithContext(c.UserContext()), id, p.UserID, p.Name)
		switch {
		case err == nil:
		case database.IsNotFound(err):
			return fiber.NewError(fiber.StatusNotFound, "audit log not found")
		case errors.Is(err, ErrAlreadyUndone):
			return fiber.NewError(fiber.StatusConflict, ErrAlreadyUndone.Error())
		case errors.Is(err, ErrNotUndoable):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case database.IsUniqueViolation(err):
			return fiber.NewError(fiber.StatusConflict, "the change conflicts with existing data")
		default:
			return err
		}

		return c.JSON(fiber.Map{"message": "change undone"})
	}
}
