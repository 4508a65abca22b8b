package storage

import (
	"context" // Context for queries
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"time"    // Update timestamps

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Upsert clause
)

// Entry Model
type Entry struct {
	Key       string `gorm:"primaryKey;size:191"`  // Blob key
	Value     []byte `gorm:"not null"`             // Serialized ledger
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"` // Last write in milliseconds
}

// TableName pins the table name
func (Entry) TableName() string {
	return "kv_entries"
}

// SQLBlob stores the value in one row of the kv_entries table
type SQLBlob struct {
	db  *gorm.DB // Database handle
	key string   // Row key
}

// NewSQLBlob creates a blob bound to key
func NewSQLBlob(db *gorm.DB, key string) *SQLBlob {
	return &SQLBlob{db: db, key: key}
}

// Get reads the row value
func (b *SQLBlob) Get(ctx context.Context) ([]byte, error) {
	var e Entry                                                            // Row holder
	err := b.db.WithContext(ctx).Where(&Entry{Key: b.key}).First(&e).Error // Struct condition quotes the column per dialect
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBlobMissing // Row does not exist yet
	} else if err != nil {
		return nil, fmt.Errorf("sql get %s: %w", b.key, err)
	}
	return e.Value, nil
}

// Set upserts the row value
func (b *SQLBlob) Set(ctx context.Context, value []byte) error {
	e := Entry{Key: b.key, Value: value, UpdatedAt: time.Now().UnixMilli()}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},                            // Conflict on primary key
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}), // Replace value
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("sql set %s: %w", b.key, err)
	}
	return nil
}
