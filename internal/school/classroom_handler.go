package school

import (
	"fmt"

	"nursery-backend/internal/audit"
	"nursery-backend/internal/database"
	"nursery-backend/internal/httpx"
	"nursery-backend/internal/models"
	"nursery-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type CreateClassroomRequest struct {
	Name       string            `json:"name" validate:"required,max=100"`
	GradeLevel models.GradeLevel `json:"grade_level" validate:"required,oneof=INFANT TODDLER PRESCHOOL PRE_K"`
	Capacity   *int              `json:"capacity" validate:"required,gte=0"`
	Teacher    string            `json:"teacher" validate:"max=100"`
}

type UpdateClassroomRequest struct {
	Name       *string            `json:"name" validate:"omitempty,min=1,max=100"`
	GradeLevel *models.GradeLevel `json:"grade_level" validate:"omitempty,oneof=INFANT TODDLER PRESCHOOL PRE_K"`
	Capacity   *int               `json:"capacity" validate:"omitempty,gte=0"`
	Teacher    *string            `json:"teacher" validate:"omitempty,max=100"`
}

type ClassroomResponse struct {
	ID           uint              `json:"id"`
	Name         string            `json:"name"`
	GradeLevel   models.GradeLevel `json:"grade_level"`
	GradeLabel   string            `json:"grade_label"`
	Capacity     uint              `json:"capacity"`
	Teacher      string            `json:"teacher"`
	StudentCount int64             `json:"student_count"`
	CreatedAt    string            `json:"created_at"`
}

func toClassroomResponse(cl models.Classroom, students int64) ClassroomResponse {
	return ClassroomResponse{
		ID:           cl.ID,
		Name:         cl.Name,
		GradeLevel:   cl.GradeLevel,
		GradeLabel:   cl.GradeLevel.Label(),
		Capacity:     cl.Capacity,
		Teacher:      cl.Teacher,
		StudentCount: students,
		CreatedAt:    cl.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// activeStudentCounts returns classroom id -> number of active students.
func activeStudentCounts(c *fiber.Ctx) (map[uint]int64, error) {
	type row struct {
		ClassroomID uint
		Total       int64
	}
	var rows []row
	err := database.DB.WithContext(c.UserContext()).
		Model(&models.Student{}).
		Select("classroom_id, COUNT(*) AS total").
		Where("is_active = ? AND classroom_id IS NOT NULL", true).
		Group("classroom_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.ClassroomID] = r.Total
	}
	return out, nil
}

// GET /api/classrooms?grade_level=TODDLER
func ListClassroomsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext()).Model(&models.Classroom{})
		if grade := c.Query("grade_level"); grade != "" {
			dbq = dbq.Where("grade_level = ?", grade)
		}

		var rows []models.Classroom
		if err := dbq.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
			return err
		}
		counts, err := activeStudentCounts(c)
		if err != nil {
			return err
		}

		resp := make([]ClassroomResponse, 0, len(rows))
		for _, cl := range rows {
			resp = append(resp, toClassroomResponse(cl, counts[cl.ID]))
		}
		return c.JSON(resp)
	}
}

// GET /api/classrooms/:id
func GetClassroomHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var cl models.Classroom
		if err := httpx.FindOr404(database.DB.WithContext(c.UserContext()), &cl, id, "classroom not found"); err != nil {
			return err
		}
		counts, err := activeStudentCounts(c)
		if err != nil {
			return err
		}
		return c.JSON(toClassroomResponse(cl, counts[cl.ID]))
	}
}

// POST /api/classrooms
func CreateClassroomHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateClassroomRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		cl := models.Classroom{
			Name:       body.Name,
			GradeLevel: body.GradeLevel,
			Capacity:   uint(*body.Capacity),
			Teacher:    body.Teacher,
		}

		db := database.DB.WithContext(c.UserContext())
		if err := db.Create(&cl).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityClassroom,
			EntityID:    cl.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Classroom added: %s", cl),
			After:       cl,
		})

		return c.Status(fiber.StatusCreated).JSON(toClassroomResponse(cl, 0))
	}
}

// PUT|PATCH /api/classrooms/:id
func UpdateClassroomHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}
		var body UpdateClassroomRequest
		if err := validation.Bind(c, &body); err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var cl models.Classroom
		if err := httpx.FindOr404(db, &cl, id, "classroom not found"); err != nil {
			return err
		}
		before := cl

		if body.Name != nil {
			cl.Name = *body.Name
		}
		if body.GradeLevel != nil {
			cl.GradeLevel = *body.GradeLevel
		}
		if body.Capacity != nil {
			cl.Capacity = uint(*body.Capacity)
		}
		if body.Teacher != nil {
			cl.Teacher = *body.Teacher
		}

		if err := db.Save(&cl).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityClassroom,
			EntityID:    cl.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Classroom updated: %s", cl),
			Before:      before,
			After:       cl,
		})

		counts, err := activeStudentCounts(c)
		if err != nil {
			return err
		}
		return c.JSON(toClassroomResponse(cl, counts[cl.ID]))
	}
}

// DELETE /api/classrooms/:id
// Students of the classroom stay, unassigned.
func DeleteClassroomHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParseID(c)
		if err != nil {
			return err
		}

		db := database.DB.WithContext(c.UserContext())

		var cl models.Classroom
		if err := httpx.FindOr404(db, &cl, id, "classroom not found"); err != nil {
			return err
		}
		if err := db.Delete(&cl).Error; err != nil {
			return err
		}

		audit.Record(c, db, audit.LogOptions{
			EntityType:  audit.EntityClassroom,
			EntityID:    cl.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Classroom removed: %s", cl),
			Before:      cl,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
