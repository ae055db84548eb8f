package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/calendar"
)

// IncomeType classifies where an income comes from.
type IncomeType string

const (
	IncomeTypeSalary     IncomeType = "salary"
	IncomeTypeFreelance  IncomeType = "freelance"
	IncomeTypeInvestment IncomeType = "investment"
	IncomeTypeRental     IncomeType = "rental"
	IncomeTypeBusiness   IncomeType = "business"
	IncomeTypeGift       IncomeType = "gift"
	IncomeTypeOther      IncomeType = "other"
)

// IncomeTypes lists every income type.
var IncomeTypes = []IncomeType{
	IncomeTypeSalary, IncomeTypeFreelance, IncomeTypeInvestment, IncomeTypeRental,
	IncomeTypeBusiness, IncomeTypeGift, IncomeTypeOther,
}

// Valid reports whether t is a known income type.
func (t IncomeType) Valid() bool {
	switch t {
	case IncomeTypeSalary, IncomeTypeFreelance, IncomeTypeInvestment, IncomeTypeRental,
		IncomeTypeBusiness, IncomeTypeGift, IncomeTypeOther:
		return true
	}
	return false
}

// Income is a ledger entry for money received. A recurring income is also the
// definition new entries are materialized from; generated entries point back
// to it through SourceID.
type Income struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Source      string          `gorm:"not null;size:200" json:"source"`
	Type        IncomeType      `gorm:"column:income_type;not null;size:20" json:"income_type"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Recurrence
	SourceID      *string `gorm:"type:uuid;index" json:"source_id,omitempty"`
	AutoGenerated bool    `gorm:"not null;default:false" json:"auto_generated"`
}

// BeforeSave keeps every stored date at midnight UTC.
func (i *Income) BeforeSave(tx *gorm.DB) error {
	i.Date = calendar.Truncate(i.Date)
	i.Recurrence.normalize()
	return nil
}

// Materialize builds the concrete entry for one occurrence of this recurring income.
func (i *Income) Materialize(on time.Time) *Income {
	sourceID := i.ID
	return &Income{
		UserID:        i.UserID,
		Source:        i.Source,
		Type:          i.Type,
		Amount:        i.Amount,
		Description:   i.Description,
		Date:          calendar.Truncate(on),
		SourceID:      &sourceID,
		AutoGenerated: true,
	}
}
