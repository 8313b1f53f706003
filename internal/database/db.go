package database

import (
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL dialect
	_ "github.com/mattn/go-sqlite3"              // SQLite driver
	"github.com/pkg/errors"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open connects to a database and migrates the given models.
func Open(driver, dsn string, models ...interface{}) (*gorm.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	case "":
		driver = DriverSQLite
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if len(models) > 0 {
		if err := db.AutoMigrate(models...).Error; err != nil {
			db.Close()
			return nil, errors.Wrap(err, "migrating schema")
		}
	}
	return db, nil
}
