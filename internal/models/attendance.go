package models

import (
	"errors"
	"time"
)

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "PRESENT"
	StatusAbsent  AttendanceStatus = "ABSENT"
	StatusLate    AttendanceStatus = "LATE"
	StatusSick    AttendanceStatus = "SICK"
)

var (
	ErrAttendanceInFuture  = errors.New("attendance date cannot be in the future")
	ErrAttendanceNoSubject = errors.New("attendance must be linked to a student or a staff member")
)

// Attendance belongs to a student or a staff member; each may have at most
// one row per day.
type Attendance struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	StudentID *uint            `gorm:"uniqueIndex:idx_attendance_student_date" json:"student_id"`
	Student   *Student         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StaffID   *uint            `gorm:"uniqueIndex:idx_attendance_staff_date" json:"staff_id"`
	Staff     *Staff           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Date      time.Time        `gorm:"type:date;not null;index;uniqueIndex:idx_attendance_student_date;uniqueIndex:idx_attendance_staff_date" json:"date"`
	Status    AttendanceStatus `gorm:"size:10;not null" json:"status"`
	CheckIn   *string          `gorm:"size:8" json:"check_in"`
	CheckOut  *string          `gorm:"size:8" json:"check_out"`
	Notes     string           `gorm:"type:text" json:"notes"`
}

func (Attendance) TableName() string { return "attendance_records" }

// Validate rejects records dated after today and records with no subject.
func (a Attendance) Validate(today time.Time) error {
	if DateOf(a.Date).After(DateOf(today)) {
		return ErrAttendanceInFuture
	}
	if a.StudentID == nil && a.StaffID == nil {
		return ErrAttendanceNoSubject
	}
	return nil
}
