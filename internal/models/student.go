package models

import "time"

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

type Student struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FirstName    string    `gorm:"size:50;not null;index:idx_students_name,priority:2" json:"first_name"`
	LastName     string    `gorm:"size:50;not null;index:idx_students_name,priority:1" json:"last_name"`
	DateOfBirth  time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	Gender       Gender    `gorm:"size:1;not null" json:"gender"`
	ProfileImage string    `gorm:"size:255" json:"profile_image"`

	ClassroomID       *uint      `gorm:"index:idx_students_classroom_active" json:"classroom_id"`
	Classroom         *Classroom `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	TeacherID         *uint      `gorm:"index" json:"teacher_id"`
	Teacher           *Staff     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	EnrollmentDate    time.Time  `gorm:"type:date;not null" json:"enrollment_date"`
	EnrollmentHistory string     `gorm:"type:text" json:"enrollment_history"`

	UploadedDocuments string `gorm:"size:255" json:"uploaded_documents"`
	EvaluationNotes   string `gorm:"type:text" json:"evaluation_notes"`

	IsActive bool `gorm:"not null;index:idx_students_classroom_active" json:"is_active"`

	Allergies    string `gorm:"type:text" json:"allergies"`
	MedicalNotes string `gorm:"type:text" json:"medical_notes"`

	GuardianName     string `gorm:"size:100;not null" json:"guardian_name"`
	GuardianContact  string `gorm:"size:20;not null" json:"guardian_contact"`
	EmergencyContact string `gorm:"size:20;not null" json:"emergency_contact"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// AgeOn returns the age in whole years on the given day.
func (s Student) AgeOn(today time.Time) int {
	return YearsBetween(s.DateOfBirth, today)
}

// YearsBetween counts completed years from born to today, decrementing when
// today's birthday has not happened yet.
func YearsBetween(born, today time.Time) int {
	years := today.Year() - born.Year()
	if today.Month() < born.Month() || (today.Month() == born.Month() && today.Day() < born.Day()) {
		years--
	}
	return years
}
