package models

import "time"

type DocumentType string

const (
	DocBirthCertificate DocumentType = "BIRTH_CERT"
	DocMedical          DocumentType = "MEDICAL"
	DocConsent          DocumentType = "CONSENT"
	DocOther            DocumentType = "OTHER"
)

type StudentDocument struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	StudentID      uint         `gorm:"not null;index" json:"student_id"`
	Student        *Student     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DocType        DocumentType `gorm:"size:20;not null" json:"doc_type"`
	File           string       `gorm:"size:255;not null" json:"file"`
	IssueDate      time.Time    `gorm:"type:date;not null;index" json:"issue_date"`
	ExpirationDate *time.Time   `gorm:"type:date" json:"expiration_date"`
}

// IsExpiredOn is true only when an expiration date exists and is strictly
// before today.
func (d StudentDocument) IsExpiredOn(today time.Time) bool {
	if d.ExpirationDate == nil {
		return false
	}
	return DateOf(*d.ExpirationDate).Before(DateOf(today))
}
