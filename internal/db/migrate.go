package db

import (
	"fmt" // DSN formatting and errors

	"accrual_system/internal/config"  // Application configuration
	"accrual_system/internal/storage" // Key-value entry model

	"github.com/sirupsen/logrus" // Structured logging

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // PostgreSQL driver for GORM
	"gorm.io/gorm"            // GORM ORM library
)

// Open connects to the SQL database selected by cfg.StoreBackend
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector // Driver for the configured backend
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		// Data Source Name for MySQL
		dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
		dialector = mysql.Open(dsn)
	case config.BackendPostgres:
		// Data Source Name for PostgreSQL
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("store backend %q is not SQL", cfg.StoreBackend)
	}
	return gorm.Open(dialector, &gorm.Config{}) // Open a connection to the database
}

// Migrate creates the key-value table the ledger blob lives in
func Migrate(gdb *gorm.DB) error {
	// AutoMigrate will create the table, columns and primary key
	if err := gdb.AutoMigrate(&storage.Entry{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
