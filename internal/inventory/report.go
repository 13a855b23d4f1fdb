package inventory

import (
	"nursery-backend/internal/database"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HolderReport splits inventory by who holds it.
type HolderReport struct {
	Unassigned         []ItemResponse `json:"unassigned"`
	AssignedToStaff    []ItemResponse `json:"assigned_to_staff"`
	AssignedToStudents []ItemResponse `json:"assigned_to_students"`
	TotalValue         string         `json:"total_value"`
	LowStock           int            `json:"low_stock"`
}

// BuildHolderReport groups every item; an item with both a custodian and a
// student is listed under students.
func BuildHolderReport(db *gorm.DB) (HolderReport, error) {
	var items []models.InventoryItem
	if err := withHolders(db).Order("name ASC, id ASC").Find(&items).Error; err != nil {
		return HolderReport{}, err
	}

	r := HolderReport{
		Unassigned:         []ItemResponse{},
		AssignedToStaff:    []ItemResponse{},
		AssignedToStudents: []ItemResponse{},
	}
	total := decimal.Zero
	for _, i := range items {
		total = total.Add(i.TotalValue())
		if i.IsLowStock() {
			r.LowStock++
		}
		switch {
		case i.AssignedToStudentID != nil:
			r.AssignedToStudents = append(r.AssignedToStudents, ToResponse(i))
		case i.StaffCustodianID != nil:
			r.AssignedToStaff = append(r.AssignedToStaff, ToResponse(i))
		default:
			r.Unassigned = append(r.Unassigned, ToResponse(i))
		}
	}
	r.TotalValue = total.StringFixed(2)
	return r, nil
}

// GET /api/inventory/report
func HolderReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := BuildHolderReport(database.DB.WithContext(c.UserContext()))
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}
