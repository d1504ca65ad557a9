package database

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// ConnectTest opens an isolated in-memory sqlite database for tests.
// Foreign keys are enabled so cascade deletes behave like the production
// schema.
func ConnectTest() (*gorm.DB, error) {
	name := fmt.Sprintf("file:test%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", atomic.AddInt64(&testDBCounter, 1))

	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// CloseTest releases the underlying connection so the in-memory database
// is dropped between tests.
func CloseTest(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
