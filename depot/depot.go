// Package depot is the storage layer: Postgres via GORM, one wrapper struct
// per entity with its upsert rules. Scrapers never touch gorm.DB directly;
// they go through the Entities handles, and each job's store pass runs inside
// a single transaction.
package depot

import (
	"context"

	"gorm.io/gorm"
)

// Entities bundles the per-table handles that the Depot is responsible for.
type Entities struct {
	Articles *ArticlesDB
	Metrics  *MetricsDB
	Diesel   *DieselDB
	Lanes    *LanesDB
	Rates    *RatesDB
	Runs     *RunsDB
}

func newEntities(conn *gorm.DB) *Entities {
	return &Entities{
		Articles: &ArticlesDB{Conn: conn},
		Metrics:  &MetricsDB{Conn: conn},
		Diesel:   &DieselDB{Conn: conn},
		Lanes:    &LanesDB{Conn: conn},
		Rates:    &RatesDB{Conn: conn},
		Runs:     &RunsDB{Conn: conn},
	}
}

// Depot owns the database connection and hands out entity handles.
type Depot struct {
	db       *gorm.DB
	Entities *Entities
}

// NewDepot connects to Postgres with the provided DSN and migrates the schema.
func NewDepot(dsn string) (*Depot, error) {
	conn, err := connectToPG(dsn)
	if err != nil {
		return nil, newError(errFailedConnection, err)
	}

	err = conn.AutoMigrate(
		&NewsArticle{},
		&DailyMetric{},
		&MacroMetric{},
		&DieselPrice{},
		&Lane{},
		&Rate{},
		&ScraperRun{},
	)
	if err != nil {
		return nil, newError(errFailedMigration, err)
	}

	return newDepot(conn), nil
}

func newDepot(conn *gorm.DB) *Depot {
	return &Depot{
		db:       conn,
		Entities: newEntities(conn),
	}
}

// Transaction runs fn against transaction-scoped entity handles. Any error
// rolls back every write made inside fn, so a job either lands whole or not
// at all.
func (d *Depot) Transaction(ctx context.Context, fn func(tx *Entities) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newEntities(tx))
	})
}
