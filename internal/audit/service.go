package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"nursery-backend/internal/auth"
	"nursery-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entity type names stored in AuditLog.EntityType.
const (
	EntityClassroom       = "classroom"
	EntityStaff           = "staff"
	EntityStudent         = "student"
	EntityStudentDocument = "student_document"
	EntityAttendance      = "attendance"
	EntityMedicalRecord   = "medical_record"
	EntityInvoice         = "invoice"
	EntityPayment         = "payment"
	EntityInventoryItem   = "inventory_item"
	EntityContract        = "payroll_contract"
	EntitySalaryRecord    = "salary_record"
)

// entities maps every undoable entity type to a constructor of its model.
var entities = map[string]func() any{
	EntityClassroom:       func() any { return &models.Classroom{} },
	EntityStaff:           func() any { return &models.Staff{} },
	EntityStudent:         func() any { return &models.Student{} },
	EntityStudentDocument: func() any { return &models.StudentDocument{} },
	EntityAttendance:      func() any { return &models.Attendance{} },
	EntityMedicalRecord:   func() any { return &models.MedicalRecord{} },
	EntityInvoice:         func() any { return &models.Invoice{} },
	EntityPayment:         func() any { return &models.Payment{} },
	EntityInventoryItem:   func() any { return &models.InventoryItem{} },
	EntityContract:        func() any { return &models.PayrollContract{} },
	EntitySalaryRecord:    func() any { return &models.SalaryRecord{} },
}

var (
	ErrAlreadyUndone = errors.New("this change has already been undone")
	ErrNotUndoable   = errors.New("this change cannot be undone")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func snapshot(v any) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	return errors.Wrap(db.Create(&entry).Error, "write audit log")
}

// Record writes an audit entry for the caller of c. A failed write is logged
// and never fails the request.
func Record(c *fiber.Ctx, db *gorm.DB, opts LogOptions) {
	if p := auth.PrincipalFrom(c); p != nil {
		opts.UserID = p.UserID
		opts.UserName = p.Name
	}
	if err := WriteLog(db.WithContext(c.UserContext()), opts); err != nil {
		log.Errorw("audit write failed",
			"entity_type", opts.EntityType,
			"entity_id", opts.EntityID,
			"action", opts.Action,
			"err", err,
		)
	}
}

// UndoLog reverts the change recorded by log logID: a create is deleted, an
// update is restored to its before snapshot and a delete is recreated with
// its original id. The revert and its own "undo" entry commit together.
func UndoLog(db *gorm.DB, logID, userID uint, userName string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, logID).Error; err != nil {
			return err
		}
		if entry.IsUndone {
			return ErrAlreadyUndone
		}

		newModel, ok := entities[entry.EntityType]
		if !ok {
			return errors.Wrapf(ErrNotUndoable, "unknown entity type %q", entry.EntityType)
		}

		switch entry.Action {
		case models.AuditActionCreate:
			if err := tx.Delete(newModel(), entry.EntityID).Error; err != nil {
				return errors.Wrap(err, "delete created entity")
			}
		case models.AuditActionUpdate:
			m := newModel()
			if err := json.Unmarshal(entry.BeforeData, m); err != nil {
				return errors.Wrap(err, "decode before snapshot")
			}
			if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
				return errors.Wrap(err, "restore entity")
			}
		case models.AuditActionDelete:
			m := newModel()
			if err := json.Unmarshal(entry.BeforeData, m); err != nil {
				return errors.Wrap(err, "decode deleted snapshot")
			}
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return errors.Wrap(err, "recreate entity")
			}
		default:
			return ErrNotUndoable
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &userID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return errors.Wrap(err, "mark log undone")
		}

		return WriteLog(tx, LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Undone: %s", entry.Description),
			Before:      json.RawMessage(entry.AfterData),
			After:       json.RawMessage(entry.BeforeData),
		})
	})
}
