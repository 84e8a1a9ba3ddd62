package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"invoiceai/internal/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects to the configured database. Postgres connections are retried
// a few times so the CLI can start alongside a database container.
func Open(driver, dsn string) (*gorm.DB, error) {
	const op = "Open"

	log := logger.WithComponent("store")

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedDriver, driver)
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			break
		}
		if driver != DriverPostgres {
			break
		}
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", connectAttempts).
			Msg("Database connection failed, retrying")
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to %s: %w", op, driver, err)
	}

	log.Debug().Str("driver", driver).Msg("Database connection established")
	return db, nil
}
