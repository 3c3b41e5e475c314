package depot

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// connectToPG opens the Postgres connection with exponential backoff, since
// the database may still be starting when an ingestion container comes up.
func connectToPG(dsn string) (*gorm.DB, error) {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = 10 * time.Second
	bf.MaxInterval = 25 * time.Second
	bf.MaxElapsedTime = 90 * time.Second

	db, err := backoff.RetryWithData[*gorm.DB](func() (*gorm.DB, error) {
		conn, err := gorm.Open(postgres.New(postgres.Config{
			DSN: dsn,
		}))
		if err != nil {
			slog.Warn("Postgres not yet ready", "error", err)
			return nil, err
		}
		slog.Info("Connected to Postgres")
		return conn, nil
	}, bf)
	if err != nil {
		return nil, err
	}

	return db, nil
}
