package depot

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Lane is an origin-destination pair for one equipment type. The composite
// identity (origin, destination, equipment_type) is enforced at upsert time
// rather than with a hard uniqueness constraint.
type Lane struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Origin        string    `gorm:"size:128;index;not null" json:"origin"`
	Destination   string    `gorm:"size:128;index;not null" json:"destination"`
	EquipmentType string    `gorm:"size:16;default:van" json:"equipment_type"` // van, reefer, flatbed
	DistanceMiles float64   `json:"distance_miles"`
	VolumeRank    int       `json:"volume_rank"` // from freight-flow data, 1 = busiest
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
}

// Rate is one observed price point on a lane. A lane may carry many rates;
// the loose (lane, date, source) key keeps duplicate contract records out.
type Rate struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LaneID          uint      `gorm:"index;not null" json:"lane_id"`
	Date            string    `gorm:"size:10;index;not null" json:"date"` // YYYY-MM-DD
	RatePerMile     float64   `gorm:"not null" json:"rate_per_mile"`
	IsSpot          bool      `json:"is_spot"`
	IsContract      bool      `json:"is_contract"`
	Source          string    `gorm:"size:32" json:"source"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
}

type LanesDB struct {
	Conn *gorm.DB
}

// GetOrCreate returns the lane with the given composite identity, creating it
// when it does not exist yet.
func (db *LanesDB) GetOrCreate(ctx context.Context, origin, destination, equipmentType string) (*Lane, error) {
	if origin == "" || destination == "" {
		return nil, newError(errLaneIdentityEmpty, nil)
	}
	if equipmentType == "" {
		equipmentType = "van"
	}

	conn := db.Conn.WithContext(ctx)

	var lane Lane
	res := conn.Where("origin = ? AND destination = ? AND equipment_type = ?",
		origin, destination, equipmentType).Take(&lane)
	switch {
	case res.Error == nil:
		return &lane, nil
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		lane = Lane{Origin: origin, Destination: destination, EquipmentType: equipmentType}
		if err := conn.Create(&lane).Error; err != nil {
			return nil, newError(errLaneCreation, err)
		}
		return &lane, nil
	default:
		return nil, newError(errLaneLookup, res.Error)
	}
}

// UpdateRank refreshes the volume rank and distance estimate of a lane.
func (db *LanesDB) UpdateRank(ctx context.Context, laneID uint, rank int, distanceMiles float64) error {
	err := db.Conn.WithContext(ctx).Model(&Lane{}).Where("id = ?", laneID).
		Updates(map[string]any{
			"volume_rank":    rank,
			"distance_miles": distanceMiles,
		}).Error
	if err != nil {
		return newError(errLaneRankUpdate, err)
	}
	return nil
}

// SetDistance refreshes only the distance estimate, leaving the rank alone.
func (db *LanesDB) SetDistance(ctx context.Context, laneID uint, distanceMiles float64) error {
	err := db.Conn.WithContext(ctx).Model(&Lane{}).Where("id = ?", laneID).
		Update("distance_miles", distanceMiles).Error
	if err != nil {
		return newError(errLaneRankUpdate, err)
	}
	return nil
}

type RatesDB struct {
	Conn *gorm.DB
}

// CreateIfAbsent inserts the rate unless a row with the same (lane, date,
// source) already exists, so re-ingesting the same contract feed is a no-op.
func (db *RatesDB) CreateIfAbsent(ctx context.Context, rate *Rate) (createdNew bool, err error) {
	if rate.LaneID == 0 {
		return false, newError(errRateLaneMissing, nil)
	}
	if rate.Date == "" {
		return false, newError(errDateEmpty, nil)
	}

	conn := db.Conn.WithContext(ctx)

	var existing Rate
	res := conn.Where("lane_id = ? AND date = ? AND source = ?",
		rate.LaneID, rate.Date, rate.Source).Take(&existing)
	switch {
	case res.Error == nil:
		return false, nil
	case errors.Is(res.Error, gorm.ErrRecordNotFound):
		if err := conn.Create(rate).Error; err != nil {
			return false, newError(errRateCreation, err)
		}
		return true, nil
	default:
		return false, newError(errRateLookup, res.Error)
	}
}
