package inventory

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportRow is one parsed spreadsheet line: name, category, quantity, unit price.
type ImportRow struct {
	Line      int
	Name      string
	Category  models.InventoryCategory
	Quantity  uint
	UnitPrice decimal.Decimal
}

type ImportResult struct {
	Created   int      `json:"created"`
	Restocked int      `json:"restocked"`
	Errors    []string `json:"errors"`
}

var validCategories = map[models.InventoryCategory]bool{
	models.CategoryUniform:    true,
	models.CategoryBook:       true,
	models.CategoryStationery: true,
	models.CategoryToy:        true,
	models.CategoryEquipment:  true,
	models.CategoryAsset:      true,
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	return first == "NAME" || strings.Contains(first, "ITEM")
}

// ParseImportSheet reads the first sheet of an XLSX workbook. A leading header
// row is skipped; blank lines are ignored; malformed lines are reported.
func ParseImportSheet(r io.Reader) ([]ImportRow, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}

	start := 0
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start = 1
	}

	var out []ImportRow
	var problems []string
	for i := start; i < len(rows); i++ {
		row := rows[i]
		line := i + 1
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 4 {
			problems = append(problems, fmt.Sprintf("line %d: expected name, category, quantity, unit price", line))
			continue
		}

		cat := models.InventoryCategory(strings.ToUpper(strings.TrimSpace(row[1])))
		if !validCategories[cat] {
			problems = append(problems, fmt.Sprintf("line %d: unknown category %q", line, row[1]))
			continue
		}
		qty, err := strconv.ParseUint(strings.TrimSpace(row[2]), 10, 32)
		if err != nil {
			problems = append(problems, fmt.Sprintf("line %d: quantity %q is not a whole number", line, row[2]))
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil || price.IsNegative() {
			problems = append(problems, fmt.Sprintf("line %d: unit price %q is invalid", line, row[3]))
			continue
		}

		out = append(out, ImportRow{
			Line:      line,
			Name:      strings.TrimSpace(row[0]),
			Category:  cat,
			Quantity:  uint(qty),
			UnitPrice: price.Round(2),
		})
	}
	return out, problems, nil
}

// ApplyImport restocks items whose name matches case-insensitively and
// creates the rest. Each row commits on its own.
func ApplyImport(c *fiber.Ctx, db *gorm.DB, rows []ImportRow) ImportResult {
	res := ImportResult{Errors: []string{}}
	today := httpx.Today()

	for _, row := range rows {
		var existing models.InventoryItem
		err := db.Where("LOWER(name) = ?", strings.ToLower(row.Name)).First(&existing).Error
		switch {
		case err == nil:
			before := existing
			existing.Quantity += row.Quantity
			existing.UnitPrice = row.UnitPrice
			existing.LastRestock = &today
			if err := db.Save(&existing).Error; err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
				continue
			}
			res.Restocked++
			audit.Record(c, db, audit.LogOptions{
				EntityType:  audit.EntityInventoryItem,
				EntityID:    existing.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Restocked from import: %s +%d", existing.Name, row.Quantity),
				Before:      before,
				After:       existing,
			})
		case database.IsNotFound(err):
			item := models.InventoryItem{
				Name:        row.Name,
				Category:    row.Category,
				Quantity:    row.Quantity,
				UnitPrice:   row.UnitPrice,
				LastRestock: &today,
			}
			if err := db.Create(&item).Error; err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
				continue
			}
			res.Created++
			audit.Record(c, db, audit.LogOptions{
				EntityType:  audit.EntityInventoryItem,
				EntityID:    item.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Imported: %s x%d", item.Name, item.Quantity),
				After:       item,
			})
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", row.Line, err))
		}
	}
	return res
}

// POST /api/inventory/import  (multipart, field "file", .xlsx)
func ImportItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return err
		}
		defer file.Close()

		rows, problems, err := ParseImportSheet(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "spreadsheet could not be read: "+err.Error())
		}

		res := ApplyImport(c, database.DB.WithContext(c.UserContext()), rows)
		res.Errors = append(append([]string{}, problems...), res.Errors...)

		log.Infow("inventory import finished",
			"file", fileHeader.Filename,
			"created", res.Created,
			"restocked", res.Restocked,
			"errors", len(res.Errors),
		)
		return c.JSON(res)
	}
}
