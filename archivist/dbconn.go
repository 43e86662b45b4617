package archivist

import (
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func connectToPG(dsn string) (*gorm.DB, error) {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = 2 * time.Second
	bf.MaxInterval = 10 * time.Second
	bf.MaxElapsedTime = 30 * time.Second

	db, err := backoff.RetryWithData[*gorm.DB](func() (*gorm.DB, error) {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			slog.Default().Warn("[archivist] Postgres not yet ready", "error", err)
			return nil, err
		}
		slog.Default().Info("[archivist] Connected to Postgres")
		return conn, nil
	}, bf)
	if err != nil {
		return nil, newError(errFailedConnection, err)
	}

	return db, nil
}
