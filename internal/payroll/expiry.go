package payroll

import (
	"time"

	"nursery-backend/internal/models"

	"gorm.io/gorm"
)

// Bucket classifies how soon a contract ends.
type Bucket int

const (
	BucketNone   Bucket = iota
	BucketSoon          // ends within 30 days
	BucketLater         // ends in 31 to 60 days
)

// ExpiryBucket places a contract end date relative to today. Contracts that
// already ended, end after 60 days, or have no end date land in BucketNone.
func ExpiryBucket(end *time.Time, today time.Time) Bucket {
	if end == nil {
		return BucketNone
	}
	days := int(models.DateOf(*end).Sub(models.DateOf(today)).Hours() / 24)
	switch {
	case days < 0:
		return BucketNone
	case days <= 30:
		return BucketSoon
	case days <= 60:
		return BucketLater
	}
	return BucketNone
}

// Expiring lists contracts by bucket, soonest end date first.
type Expiring struct {
	Within30 []models.PayrollContract
	Within60 []models.PayrollContract
}

func FindExpiring(db *gorm.DB, today time.Time) (Expiring, error) {
	today = models.DateOf(today)
	out := Expiring{
		Within30: []models.PayrollContract{},
		Within60: []models.PayrollContract{},
	}

	var rows []models.PayrollContract
	err := db.Preload("Staff").
		Where("contract_end IS NOT NULL AND contract_end >= ? AND contract_end <= ?", today, today.AddDate(0, 0, 60)).
		Order("contract_end, id").
		Find(&rows).Error
	if err != nil {
		return out, err
	}

	for _, c := range rows {
		switch ExpiryBucket(c.ContractEnd, today) {
		case BucketSoon:
			out.Within30 = append(out.Within30, c)
		case BucketLater:
			out.Within60 = append(out.Within60, c)
		}
	}
	return out, nil
}
