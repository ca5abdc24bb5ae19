package seed

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestRunCreatesDemoSite(t *testing.T) {
	gdb := setupSeedTestDB(t)
	ctx := t.Context()

	result, err := Run(ctx, gdb, Options{UploadDir: t.TempDir(), UploadURL: "/uploads"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.Site == nil || !result.Site.IsDefaultSite {
		t.Fatalf("expected a default site, got %+v", result.Site)
	}
	if len(result.Menu.Items) != 3 {
		t.Fatalf("expected 3 menu items, got %d", len(result.Menu.Items))
	}
	if got := result.Menu.Items[0].DisplayTitle(); got != "Home" {
		t.Fatalf("expected the first item to fall back to the page title, got %q", got)
	}

	tree := service.NewPageTreeService(gdb)
	listingPage, err := tree.Get(ctx, result.Listing.PageID)
	if err != nil {
		t.Fatalf("load listing: %v", err)
	}
	posts, err := service.NewBlogService(gdb, tree).Posts(ctx, listingPage)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if len(posts) != len(demoPosts) {
		t.Fatalf("expected %d live posts, got %d", len(demoPosts), len(posts))
	}

	articles := 0
	for _, post := range posts {
		if post.IsArticle() {
			articles++
		}
	}
	if articles != 1 {
		t.Fatalf("expected one article, got %d", articles)
	}
}

func TestRunRefusesSeededDatabase(t *testing.T) {
	gdb := setupSeedTestDB(t)
	opts := Options{UploadDir: t.TempDir(), UploadURL: "/uploads"}

	if _, err := Run(t.Context(), gdb, opts); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if _, err := Run(t.Context(), gdb, opts); !errors.Is(err, ErrAlreadySeeded) {
		t.Fatalf("expected ErrAlreadySeeded, got %v", err)
	}
}
