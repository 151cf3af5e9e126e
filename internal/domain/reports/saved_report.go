package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedReport is the slice of a saved report the weighting subsystem touches:
// whether the report renders weighted data.
type SavedReport struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductShortCode string    `gorm:"column:product_short_code;not null;index:idx_saved_report_scope,priority:1" json:"product_short_code"`
	SubProductID     string    `gorm:"column:sub_product_id;not null;default:'';index:idx_saved_report_scope,priority:2" json:"sub_product_id"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	IsDataWeighted   bool      `gorm:"column:is_data_weighted;not null;default:false" json:"is_data_weighted"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (SavedReport) TableName() string { return "saved_report" }

func (r *SavedReport) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
