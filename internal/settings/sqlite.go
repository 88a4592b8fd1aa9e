package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// snapshotRow is one stored snapshot.
type snapshotRow struct {
	SaveName  string    `gorm:"primaryKey"`
	Data      string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (snapshotRow) TableName() string {
	return "snapshots"
}

// SQLiteSnapshots stores one row per save name in a SQLite database.
// Writes go straight to the database, so Flush has nothing to do.
type SQLiteSnapshots struct {
	db *gorm.DB
}

var _ SnapshotStore = (*SQLiteSnapshots)(nil)

// OpenSQLiteSnapshots opens (and migrates) the database at path. Use
// ":memory:" for a private in-memory database.
func OpenSQLiteSnapshots(path string) (*SQLiteSnapshots, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &SQLiteSnapshots{db: db}, nil
}

// Put replaces the snapshot stored under name.
func (s *SQLiteSnapshots) Put(name string, snapshot map[string]any) error {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", name, err)
	}

	row := snapshotRow{SaveName: name, Data: string(data)}
	result := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", name, result.Error)
	}
	return nil
}

// Get returns the snapshot stored under name.
func (s *SQLiteSnapshots) Get(name string) (map[string]any, bool, error) {
	var row snapshotRow
	result := s.db.Where("save_name = ?", name).First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get snapshot %s: %w", name, result.Error)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(row.Data), &m); err != nil {
		return nil, false, fmt.Errorf("decoding snapshot %s: %w", name, err)
	}
	return m, true, nil
}

// Delete removes the snapshot stored under name.
func (s *SQLiteSnapshots) Delete(name string) error {
	result := s.db.Where("save_name = ?", name).Delete(&snapshotRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, result.Error)
	}
	return nil
}

// Clear removes every snapshot.
func (s *SQLiteSnapshots) Clear() error {
	result := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&snapshotRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear snapshots: %w", result.Error)
	}
	return nil
}

// Replace rewrites the table inside one transaction, so a failure leaves
// the previous snapshots in place.
func (s *SQLiteSnapshots) Replace(all map[string]map[string]any) error {
	rows := make([]snapshotRow, 0, len(all))
	for name, snap := range all {
		if snap == nil {
			snap = map[string]any{}
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot %s: %w", name, err)
		}
		rows = append(rows, snapshotRow{SaveName: name, Data: string(data)})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&snapshotRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace snapshots: %w", err)
	}
	return nil
}

// Names returns the stored save names, sorted.
func (s *SQLiteSnapshots) Names() ([]string, error) {
	var names []string
	result := s.db.Model(&snapshotRow{}).Order("save_name ASC").Pluck("save_name", &names)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", result.Error)
	}
	return names, nil
}

// Flush is a no-op; every write is already committed.
func (s *SQLiteSnapshots) Flush() error {
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSnapshots) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
