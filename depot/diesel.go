package depot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// DieselPrice is one weekly retail diesel price for one region. The series is
// append-only: rows are corrected in place but never deleted.
type DieselPrice struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Date              string    `gorm:"size:10;index:idx_diesel_date_region;not null" json:"date"`       // YYYY-MM-DD
	RegionCode        string    `gorm:"size:8;index:idx_diesel_date_region;not null" json:"region_code"` // NUS, R10, R20...
	RegionName        string    `gorm:"size:64" json:"region_name"`
	Price             float64   `gorm:"not null" json:"price"` // USD per gallon
	SeriesDescription string    `gorm:"type:text" json:"series_description"`
	Source            string    `gorm:"size:32;default:EIA" json:"source"`
	CreatedAt         time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt         time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

type DieselDB struct {
	Conn *gorm.DB
}

// Upsert merges one regional price keyed by (date, region_code): a known week
// gets its price refreshed, a new week gets a new row.
func (db *DieselDB) Upsert(ctx context.Context, price *DieselPrice) (createdNew bool, err error) {
	if price.Date == "" {
		return false, newError(errDateEmpty, nil)
	}
	if price.RegionCode == "" {
		return false, newError(errRegionCodeEmpty, nil)
	}

	conn := db.Conn.WithContext(ctx)

	var existing DieselPrice
	res := conn.Where("date = ? AND region_code = ?", price.Date, price.RegionCode).Take(&existing)
	switch {
	case res.Error == nil:
		updates := map[string]any{
			"price":              price.Price,
			"region_name":        price.RegionName,
			"series_description": price.SeriesDescription,
		}
		if err := conn.Model(&DieselPrice{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return false, newError(errDieselUpsert, err)
		}
		return false, nil
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		if err := conn.Create(price).Error; err != nil {
			return false, newError(errDieselUpsert, err)
		}
		return true, nil
	default:
		return false, newError(errDieselUpsert, res.Error)
	}
}
