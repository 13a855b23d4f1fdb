package inventory

import (
	"fmt"
	"strings"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateItemRequest struct {
	Name                string                   `json:"name" validate:"required,max=100"`
	Category            models.InventoryCategory `json:"category" validate:"required,oneof=UNIFORM BOOK STATIONERY TOY EQUIPMENT ASSET"`
	Quantity            *int                     `json:"quantity" validate:"omitempty,gte=0"` // default 0
	UnitPrice           *decimal.Decimal         `json:"unit_price" validate:"required,gte=0"`
	LastRestock         *string                  `json:"last_restock" validate:"omitempty,optional_date"`
	StaffCustodianID    *uint                    `json:"staff_custodian_id"`
	AssignedToStudentID *uint                    `json:"assigned_to_student_id"`
}

// UpdateItemRequest: an id of 0 clears the custodian or student assignment.
type UpdateItemRequest struct {
	Name                *string                   `json:"name" validate:"omitempty,min=1,max=100"`
	Category            *models.InventoryCategory `json:"category" validate:"omitempty,oneof=UNIFORM BOOK STATIONERY TOY EQUIPMENT ASSET"`
	Quantity            *int                      `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice           *decimal.Decimal          `json:"unit_price" validate:"omitempty,gte=0"`
	LastRestock         *string                   `json:"last_restock" validate:"omitempty,optional_date"`
	StaffCustodianID    *uint                     `json:"staff_custodian_id"`
	AssignedToStudentID *uint                     `json:"assigned_to_student_id"`
}

type ItemResponse struct {
	ID                  uint                     `json:"id"`
	Name                string                   `json:"name"`
	Category            models.InventoryCategory `json:"category"`
	Quantity            uint                     `json:"quantity"`
	RemainingQuantity   uint                     `json:"remaining_quantity"`
	UnitPrice           string                   `json:"unit_price"`
	TotalValue          string                   `json:"total_value"`
	IsLowStock          bool                     `json:"is_low_stock"`
	LastRestock         *string                  `json:"last_restock"`
	StaffCustodianID    *uint                    `json:"staff_custodian_id"`
	StaffName           *string                  `json:"staff_name"`
	AssignedToStudentID *uint                    `json:"assigned_to_student_id"`
	StudentName         *string                  `json:"student_name"`
}

func ToResponse(i models.InventoryItem) ItemResponse {
	resp := ItemResponse{
		ID:                  i.ID,
		Name:                i.Name,
		Category:            i.Category,
		Quantity:            i.Quantity,
		RemainingQuantity:   i.RemainingQuantity(),
		UnitPrice:           i.UnitPrice.StringFixed(2),
		TotalValue:          i.TotalValue().StringFixed(2),
		IsLowStock:          i.IsLowStock(),
		LastRestock:         models.FormatDatePtr(i.LastRestock),
		StaffCustodianID:    i.StaffCustodianID,
		AssignedToStudentID: i.AssignedToStudentID,
	}
	if i.StaffCustodian != nil {
		n := i.StaffCustodian.FullName()
		resp.StaffName = &n
	}
	if i.AssignedToStudent != nil {
		n := i.AssignedToStudent.FullName()
		resp.StudentName = &n
	}
	return resp
}

func checkHolders(db *gorm.DB, staffID, studentID *uint) error {
	if staffID != nil {
		var n int64
		if err := db.Model(&models.Staff{}).Where("id = ?", *staffID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("staff_custodian_id", "staff member does not exist")
		}
	}
	if studentID != nil {
		var n int64
		if err := db.Model(&models.Student{}).Where("id = ?", *studentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return validation.Field("assigned_to_student_id", "student does not exist")
		}
	}
	return nil
}

func withHolders(db *gorm.DB) *gorm.DB {
	return db.Preload("StaffCustodian").Preload("AssignedToStudent")
}

func load(db *gorm.DB, id uint) (models.InventoryItem, error) {
	var i models.InventoryItem
	err := httpx.FindOr404(withHolders(db), &i, id, "inventory item not found")
	return i, err
}

// GET /api/inventory?category=TOY&low_stock=true&search=ball
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := withHolders(database.DB.WithContext(c.UserContext())).Model(&models.InventoryItem{})

		if cat := c.Query("category"); cat != "" {
			dbq = dbq.Where("category = ?", cat)
		}
		low, err := httpx.QueryBool(c, "low_stock")
		if err != nil {
			return err
		}
		if low != nil {
			if *low {
				dbq = dbq.Where("quantity < ?", models.LowStockThreshold)
			} else {
				dbq = dbq.Where("quantity >= ?", models.LowStockThreshold)
			}
		}
		if q := c.Query("search"); q != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		var rows []models.InventoryItem
		if err := dbq.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
			return err
		}

		resp := make([]ItemResponse, 0, len(rows))
		for _, i := range rows {
			resp = append(resp, ToResponse(i))
		}
		return c.JSON(resp)
	}
}

// GET /api/inventory/:id
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		i, err := load(database.DB.WithContext(c.UserContext()), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(i))
	}
}

// POST /api/inventory
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		restocked, err := httpx.ParseDatePtr("last_restock", body.LastRestock)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())
		if err := checkHolders(db, body.StaffCustodianID, body.AssignedToStudentID); err != nil {
			return err
		}

		item := models.InventoryItem{
			Name:                body.Name,
			Category:            body.Category,
			UnitPrice:           body.UnitPrice.Round(2),
			LastRestock:         restocked,
			StaffCustodianID:    body.StaffCustodianID,
			AssignedToStudentID: body.AssignedToStudentID,
		}
		if body.Quantity != nil {
			item.Quantity = uint(*body.Quantity)
		}
		if err := db.Create(&item).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInventoryItem,
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Inventory item added: %s x%d", item.Name, item.Quantity),
			After:       item,
		})

		item, err = load(db, item.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(item))
	}
}

func clearableLink(v *uint) (set bool, val *uint) {
	if v == nil {
		return false, nil
	}
	if *v == 0 {
		return true, nil
	}
	return true, v
}

// PUT|PATCH /api/inventory/:id
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateItemRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var item models.InventoryItem
		if err := httpx.FindOr404(db, &item, id, "inventory item not found"); err != nil {
			return err
		}
		before := item

		setStaff, staffID := clearableLink(body.StaffCustodianID)
		setStudent, studentID := clearableLink(body.AssignedToStudentID)
		if err := checkHolders(db, staffID, studentID); err != nil {
			return err
		}
		if setStaff {
			item.StaffCustodianID = staffID
		}
		if setStudent {
			item.AssignedToStudentID = studentID
		}

		if body.Name != nil {
			item.Name = *body.Name
		}
		if body.Category != nil {
			item.Category = *body.Category
		}
		if body.Quantity != nil {
			item.Quantity = uint(*body.Quantity)
		}
		if body.UnitPrice != nil {
			item.UnitPrice = body.UnitPrice.Round(2)
		}
		if body.LastRestock != nil {
			if item.LastRestock, err = httpx.ParseDatePtr("last_restock", body.LastRestock); err != nil {
				return err
			}
		}

		if err := db.Omit("StaffCustodian", "AssignedToStudent").Save(&item).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInventoryItem,
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Inventory item updated: %s", item.Name),
			Before:      before,
			After:       item,
		})

		item, err = load(db, item.ID)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(item))
	}
}

// DELETE /api/inventory/:id
func DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var item models.InventoryItem
		if err := httpx.FindOr404(db, &item, id, "inventory item not found"); err != nil {
			return err
		}
		if err := db.Delete(&item).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityInventoryItem,
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Inventory item removed: %s", item.Name),
			Before:      item,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/inventory/:id/history
func ItemHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var item models.InventoryItem
		if err := httpx.FindOr404(db, &item, id, "inventory item not found"); err != nil {
			return err
		}

		logs, err := audit.ForEntity(db, audit.EntityInventoryItem, item.ID)
		if err != nil {
			return err
		}
		resp := make([]audit.AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, audit.ToResponse(l))
		}
		return c.JSON(fiber.Map{
			"item":    ToResponse(item),
			"history": resp,
		})
	}
}
