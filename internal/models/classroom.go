package models

import "time"

type GradeLevel string

const (
	GradeInfant    GradeLevel = "INFANT"
	GradeToddler   GradeLevel = "TODDLER"
	GradePreschool GradeLevel = "PRESCHOOL"
	GradePreK      GradeLevel = "PRE_K"
)

var gradeLabels = map[GradeLevel]string{
	GradeInfant:    "Infant (0-1)",
	GradeToddler:   "Toddler (1-2)",
	GradePreschool: "Preschool (3-4)",
	GradePreK:      "Pre-K (4-5)",
}

// Label is the human readable grade, e.g. "Toddler (1-2)".
func (g GradeLevel) Label() string {
	if l, ok := gradeLabels[g]; ok {
		return l
	}
	return string(g)
}

type Classroom struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	GradeLevel GradeLevel `gorm:"size:20;not null" json:"grade_level"`
	Capacity   uint       `gorm:"not null" json:"capacity"`
	Teacher    string     `gorm:"size:100" json:"teacher"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (c Classroom) String() string {
	return c.GradeLevel.Label() + " - " + c.Name
}
