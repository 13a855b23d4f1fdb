package models

import "time"

type MedicalRecordType string

const (
	RecordAllergy     MedicalRecordType = "ALLERGY"
	RecordMedication  MedicalRecordType = "MEDICATION"
	RecordTreatment   MedicalRecordType = "TREATMENT"
	RecordVaccination MedicalRecordType = "VACCINATION"
)

type MedicalRecord struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	StudentID   uint              `gorm:"not null;index" json:"student_id"`
	Student     *Student          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RecordType  MedicalRecordType `gorm:"size:20;not null" json:"record_type"`
	Date        time.Time         `gorm:"type:date;not null" json:"date"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Attachment  string            `gorm:"size:255" json:"attachment"`
	Resolved    bool              `gorm:"not null" json:"resolved"`
}
