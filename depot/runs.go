package depot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freight-pulse/freight-pulse/scraper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run statuses. A row moves running→success or running→failed exactly once;
// completed rows are never mutated again.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// ScraperRun is the append-only execution log, one row per job attempt cycle.
type ScraperRun struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ScraperName    string         `gorm:"size:64;index;not null" json:"scraper_name"`
	StartedAt      time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at"`
	Status         string         `gorm:"size:16" json:"status"`
	RecordsScraped int            `json:"records_scraped"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message"`
	Stats          datatypes.JSON `json:"stats"` // per-job counters (created/updated/skipped)
}

type RunsDB struct {
	Conn *gorm.DB
}

// RunsDB implements scraper.RunTracker.
var _ scraper.RunTracker = (*RunsDB)(nil)

// Begin records the start of a job execution and returns the run ID.
func (db *RunsDB) Begin(ctx context.Context, scraperName string) (uint, error) {
	if scraperName == "" {
		return 0, newError(errScraperNameMissing, nil)
	}
	run := ScraperRun{
		ScraperName: scraperName,
		StartedAt:   time.Now().UTC(),
		Status:      RunStatusRunning,
	}
	if err := db.Conn.WithContext(ctx).Create(&run).Error; err != nil {
		return 0, newError(errRunCreation, err)
	}
	return run.ID, nil
}

// Succeed closes a run as successful and records what it stored.
func (db *RunsDB) Succeed(ctx context.Context, runID uint, stats scraper.Stats) error {
	encoded, err := json.Marshal(stats)
	if err != nil {
		return newError(errRunStatsEncoding, err)
	}
	now := time.Now().UTC()
	err = db.Conn.WithContext(ctx).Model(&ScraperRun{}).Where("id = ?", runID).
		Updates(map[string]any{
			"status":          RunStatusSuccess,
			"completed_at":    now,
			"records_scraped": stats.Records,
			"stats":           datatypes.JSON(encoded),
		}).Error
	if err != nil {
		return newError(errRunCompletion, err)
	}
	return nil
}

// Fail closes a run as failed with the triggering error message.
func (db *RunsDB) Fail(ctx context.Context, runID uint, errMessage string) error {
	now := time.Now().UTC()
	err := db.Conn.WithContext(ctx).Model(&ScraperRun{}).Where("id = ?", runID).
		Updates(map[string]any{
			"status":        RunStatusFailed,
			"completed_at":  now,
			"error_message": errMessage,
		}).Error
	if err != nil {
		return newError(errRunCompletion, err)
	}
	return nil
}
