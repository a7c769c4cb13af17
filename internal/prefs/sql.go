package prefs

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one stored preference row.
type Entry struct {
	Key   string `gorm:"column:pref_key;primaryKey;size:255"`
	Value string `gorm:"column:pref_value;type:text"`
}

// TableName keeps the table name stable regardless of the struct name.
func (Entry) TableName() string {
	return "preferences"
}

// SQL is a Store backed by a gorm database.
type SQL struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) a SQLite preferences database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(path string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return NewSQL(db)
}

// NewSQL migrates the preferences table on db and returns the store.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate preferences table: %w", err)
	}
	return &SQL{db: db}, nil
}

// Get implements Store.
func (s *SQL) Get(key string) (string, bool, error) {
	var e Entry
	err := s.db.Where("pref_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return e.Value, true, nil
}

// Set implements Store.
func (s *SQL) Set(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"pref_value"}),
	}).Create(&Entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQL) Delete(key string) error {
	if err := s.db.Where("pref_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete preference %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
