package models

import "time"

// User is a login principal. Its role comes from the linked Staff row; a
// user without one has no role.
type User struct {
	ID           uint       `gorm:"primaryKey"`
	Name         string     `gorm:"size:100;not null"`
	Email        string     `gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string     `gorm:"size:255;not null"`
	IsSuperuser  bool       `gorm:"not null"`
	IsActive     bool       `gorm:"not null"`
	StaffID      *uint      `gorm:"uniqueIndex"`
	Staff        *Staff     `gorm:"constraint:OnDelete:SET NULL"`
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
