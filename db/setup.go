package db

import (
	"fmt"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/ran-crm/crm/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(driver, dsn string) error {
	dialector, err := Dialector(driver, dsn)

	if err != nil {
		return err
	}

	DB, err = gorm.Open(dialector, Config())

	if err != nil {
		return err
	}

	return nil
}

// Config stores timestamps in UTC so since-cursors compare consistently on
// every driver.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Dialector picks the gorm dialector for a DB_DRIVER value.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	case "mysql":
		cfg, err := mysqldrv.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		// start_time dedup relies on exact round-trips
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return mysql.Open(cfg.FormatDSN()), nil
	case "sqlite", "sqlite3":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Contact{},
		&models.Call{},
		&models.AuditLog{},
	}
}

func MigrateDatabase() error {
	return Migrate(DB)
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(AllModels()...)
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}

	sqlDB, err := DB.DB()

	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
