package models

import "time"

type StaffRole string

const (
	RoleTeacher    StaffRole = "TEACHER"
	RoleAssistant  StaffRole = "ASSISTANT"
	RoleAdmin      StaffRole = "ADMIN"
	RoleSupport    StaffRole = "SUPPORT"
	RoleManager    StaffRole = "MANAGER"
	RoleAccountant StaffRole = "ACCOUNTANT"
	RoleNurse      StaffRole = "NURSE"
)

type Staff struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:50;not null" json:"first_name"`
	LastName  string    `gorm:"size:50;not null" json:"last_name"`
	Role      StaffRole `gorm:"size:20;not null;index" json:"role"`
	HireDate  time.Time `gorm:"type:date;not null" json:"hire_date"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Phone     string    `gorm:"size:20;not null" json:"phone"`
	Document  string    `gorm:"size:255" json:"document"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
}

func (Staff) TableName() string { return "staff" }

func (s Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}
