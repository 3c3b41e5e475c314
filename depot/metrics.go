package depot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// DailyMetric is a wide, sparsely populated fact row keyed by ISO day.
// Different jobs each fill their own columns; nobody overwrites a whole row.
type DailyMetric struct {
	Date             string    `gorm:"primaryKey;size:10" json:"date"` // YYYY-MM-DD
	VanSpotIndex     *float64  `gorm:"column:van_spot_index" json:"van_spot_index"`
	ReeferSpotIndex  *float64  `gorm:"column:reefer_spot_index" json:"reefer_spot_index"`
	FlatbedSpotIndex *float64  `gorm:"column:flatbed_spot_index" json:"flatbed_spot_index"`
	DieselUSDPerGal  *float64  `gorm:"column:diesel_usd_per_gal" json:"diesel_usd_per_gal"`
	GasPrice         *float64  `gorm:"column:gas_price" json:"gas_price"`
	OilPrice         *float64  `gorm:"column:oil_price" json:"oil_price"`
	Source           string    `gorm:"size:64" json:"source"`
	Confidence       float64   `gorm:"default:1" json:"confidence"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// MacroMetric is the monthly twin of DailyMetric, keyed by ISO month.
type MacroMetric struct {
	Month                 string    `gorm:"primaryKey;size:7" json:"month"` // YYYY-MM
	CassShipmentsIndex    *float64  `gorm:"column:cass_shipments_index" json:"cass_shipments_index"`
	CassExpendituresIndex *float64  `gorm:"column:cass_expenditures_index" json:"cass_expenditures_index"`
	ATATonnageIndex       *float64  `gorm:"column:ata_tonnage_index" json:"ata_tonnage_index"`
	IndustrialProduction  *float64  `gorm:"column:industrial_production" json:"industrial_production"`
	ISMPMI                *float64  `gorm:"column:ism_pmi" json:"ism_pmi"`
	RetailSales           *float64  `gorm:"column:retail_sales" json:"retail_sales"`
	ConsumerSentiment     *float64  `gorm:"column:consumer_sentiment" json:"consumer_sentiment"`
	TruckTransportIndex   *float64  `gorm:"column:truck_transport_index" json:"truck_transport_index"`
	Source                string    `gorm:"size:64" json:"source"`
	Confidence            float64   `gorm:"default:1" json:"confidence"`
	CreatedAt             time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt             time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// Column whitelists keep the per-field merge explicit: a job can only touch a
// known fact column, never arbitrary attributes.
var dailyColumns = map[string]bool{
	"van_spot_index":     true,
	"reefer_spot_index":  true,
	"flatbed_spot_index": true,
	"diesel_usd_per_gal": true,
	"gas_price":          true,
	"oil_price":          true,
}

var macroColumns = map[string]bool{
	"cass_shipments_index":    true,
	"cass_expenditures_index": true,
	"ata_tonnage_index":       true,
	"industrial_production":   true,
	"ism_pmi":                 true,
	"retail_sales":            true,
	"consumer_sentiment":      true,
	"truck_transport_index":   true,
}

type MetricsDB struct {
	Conn *gorm.DB
}

// SetDailyField merges one (date, column, value) observation into the daily
// fact table: creates the row if the day is new, then updates only the given
// column. The row's source is set on first write and left alone afterwards.
func (db *MetricsDB) SetDailyField(ctx context.Context, date, column string, value float64, source string) error {
	if !dailyColumns[column] {
		return newError(errUnknownDailyField, errors.New(column))
	}
	if date == "" {
		return newError(errDateEmpty, nil)
	}

	conn := db.Conn.WithContext(ctx)

	var existing DailyMetric
	res := conn.Where("date = ?", date).Take(&existing)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		row := DailyMetric{Date: date, Source: source, Confidence: 1.0}
		if err := conn.Create(&row).Error; err != nil {
			return newError(errDailyFieldUpsert, err)
		}
		existing = row
	} else if res.Error != nil {
		return newError(errDailyFieldUpsert, res.Error)
	}

	updates := map[string]any{column: value}
	if existing.Source == "" {
		updates["source"] = source
	}
	if err := conn.Model(&DailyMetric{}).Where("date = ?", date).Updates(updates).Error; err != nil {
		return newError(errDailyFieldUpsert, err)
	}
	return nil
}

// SetMonthlyField is SetDailyField for the monthly macro fact table.
func (db *MetricsDB) SetMonthlyField(ctx context.Context, month, column string, value float64, source string) error {
	if !macroColumns[column] {
		return newError(errUnknownMacroField, errors.New(column))
	}
	if month == "" {
		return newError(errDateEmpty, nil)
	}

	conn := db.Conn.WithContext(ctx)

	var existing MacroMetric
	res := conn.Where("month = ?", month).Take(&existing)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		row := MacroMetric{Month: month, Source: source, Confidence: 1.0}
		if err := conn.Create(&row).Error; err != nil {
			return newError(errMacroFieldUpsert, err)
		}
		existing = row
	} else if res.Error != nil {
		return newError(errMacroFieldUpsert, res.Error)
	}

	updates := map[string]any{column: value}
	if existing.Source == "" {
		updates["source"] = source
	}
	if err := conn.Model(&MacroMetric{}).Where("month = ?", month).Updates(updates).Error; err != nil {
		return newError(errMacroFieldUpsert, err)
	}
	return nil
}
