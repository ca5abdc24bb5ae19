package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/trainclimb/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func mustCreatePage(t *testing.T, tree *PageTreeService, parent *db.Page, title, contentType string) *db.Page {
	t.Helper()

	var parentID *uint
	if parent != nil {
		parentID = &parent.ID
	}
	page, err := tree.Create(t.Context(), parentID, PageInput{Title: title, ContentType: contentType})
	if err != nil {
		t.Fatalf("create page %q: %v", title, err)
	}
	return page
}
