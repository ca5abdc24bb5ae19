package service

import (
	"errors"
	"testing"
	"time"

	"github.com/trainclimb/internal/db"
)

func TestPageTreeCreateBuildsPathsAndURLs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	blog := mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)
	post := mustCreatePage(t, tree, blog, "First Climb", ContentTypeBlogDetail)

	if home.Path != "0001" || home.Depth != 1 || home.URLPath != "/" {
		t.Fatalf("unexpected root: path=%s depth=%d url=%s", home.Path, home.Depth, home.URLPath)
	}
	if blog.Path != "00010001" || blog.URLPath != "/blog/" {
		t.Fatalf("unexpected listing: path=%s url=%s", blog.Path, blog.URLPath)
	}
	if post.Depth != 3 || post.URLPath != "/blog/first-climb/" || post.Slug != "first-climb" {
		t.Fatalf("unexpected post: depth=%d url=%s slug=%s", post.Depth, post.URLPath, post.Slug)
	}

	second := mustCreatePage(t, tree, blog, "Second", ContentTypeBlogDetail)
	if second.Path != "000100010002" {
		t.Fatalf("expected sibling path 000100010002, got %s", second.Path)
	}
}

func TestPageTreeCreateRejectsInvalidInput(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)

	missing := uint(999)
	tests := []struct {
		name   string
		parent *uint
		input  PageInput
		want   error
	}{
		{name: "unknown type", parent: &home.ID, input: PageInput{Title: "X", ContentType: "shop.Product"}, want: ErrPageTypeUnknown},
		{name: "blank title", parent: &home.ID, input: PageInput{Title: "  ", ContentType: ContentTypeBlogListing}, want: ErrPageTitleMissing},
		{name: "duplicate sibling slug", parent: &home.ID, input: PageInput{Title: "Blog", ContentType: ContentTypeBlogListing}, want: ErrPageSlugInUse},
		{name: "second home page", parent: nil, input: PageInput{Title: "Other", ContentType: ContentTypeHome}, want: ErrPageTypeLimit},
		{name: "detail below home", parent: &home.ID, input: PageInput{Title: "Stray", ContentType: ContentTypeBlogDetail}, want: ErrPageParentType},
		{name: "missing parent", parent: &missing, input: PageInput{Title: "Orphan", ContentType: ContentTypeBlogDetail}, want: ErrPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tree.Create(t.Context(), tt.parent, tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPageTreeDescendantsOfFilters(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	ctx := t.Context()

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	blog := mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)
	live := mustCreatePage(t, tree, blog, "Live", ContentTypeBlogDetail)
	draft := mustCreatePage(t, tree, blog, "Draft", ContentTypeBlogDetail)
	hidden := mustCreatePage(t, tree, blog, "Hidden", ContentTypeBlogDetail)
	archive := mustCreatePage(t, tree, blog, "Archive", ContentTypeBlogListing)
	nested := mustCreatePage(t, tree, archive, "Nested", ContentTypeBlogDetail)

	for _, page := range []*db.Page{live, hidden, archive, nested} {
		if _, err := tree.Publish(ctx, page.ID); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if _, err := tree.SetRestricted(ctx, hidden.ID, true); err != nil {
		t.Fatalf("restrict: %v", err)
	}
	if _, err := tree.SetRestricted(ctx, archive.ID, true); err != nil {
		t.Fatalf("restrict: %v", err)
	}

	all, err := tree.DescendantsOf(ctx, blog, DescendantFilter{ContentType: ContentTypeBlogDetail})
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 detail descendants, got %d", len(all))
	}

	visible, err := tree.DescendantsOf(ctx, blog, DescendantFilter{ContentType: ContentTypeBlogDetail, LiveOnly: true, PublicOnly: true})
	if err != nil {
		t.Fatalf("descendants: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != live.ID {
		t.Fatalf("expected only the live public page, got %+v", visible)
	}

	public, err := tree.IsPublic(ctx, nested)
	if err != nil {
		t.Fatalf("is public: %v", err)
	}
	if public {
		t.Fatal("expected page below a restricted ancestor to be private")
	}
	if tree.IsLive(draft) {
		t.Fatal("draft should not be live")
	}
}

func TestPageTreePublishKeepsFirstPublishedAt(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	ctx := t.Context()

	firstAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	secondAt := firstAt.Add(48 * time.Hour)

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	tree.now = func() time.Time { return firstAt }
	if _, err := tree.Publish(ctx, home.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := tree.Unpublish(ctx, home.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	tree.now = func() time.Time { return secondAt }
	if _, err := tree.Publish(ctx, home.ID); err != nil {
		t.Fatalf("republish: %v", err)
	}

	again, err := tree.Get(ctx, home.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !again.Live {
		t.Fatal("expected page to be live")
	}
	if !again.FirstPublishedAt.Equal(firstAt) {
		t.Fatalf("expected first published %v, got %v", firstAt, again.FirstPublishedAt)
	}
	if !again.LastPublishedAt.Equal(secondAt) {
		t.Fatalf("expected last published %v, got %v", secondAt, again.LastPublishedAt)
	}
}

func TestPageTreeUpdateRewritesDescendantURLs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	ctx := t.Context()

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	blog := mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)
	post := mustCreatePage(t, tree, blog, "Post", ContentTypeBlogDetail)

	updated, err := tree.Update(ctx, blog.ID, "Journal", "journal")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.URLPath != "/journal/" {
		t.Fatalf("expected /journal/, got %s", updated.URLPath)
	}

	reloaded, err := tree.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.URLPath != "/journal/post/" {
		t.Fatalf("expected descendant url to move, got %s", reloaded.URLPath)
	}
}

func TestPageTreeRouteLongestPrefix(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	ctx := t.Context()

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	blog := mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)
	post := mustCreatePage(t, tree, blog, "Post", ContentTypeBlogDetail)

	tests := []struct {
		path      string
		wantID    uint
		remainder string
	}{
		{path: "/", wantID: home.ID, remainder: ""},
		{path: "/blog/", wantID: blog.ID, remainder: ""},
		{path: "/blog/post/", wantID: post.ID, remainder: ""},
		{path: "/blog/category/alpine/", wantID: blog.ID, remainder: "category/alpine/"},
		{path: "/nope/", wantID: home.ID, remainder: "nope/"},
		{path: "/blog/category//", wantID: blog.ID, remainder: "category//"},
		{path: "//blog/latest", wantID: blog.ID, remainder: "latest/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			page, remainder, err := tree.Route(ctx, home, tt.path)
			if err != nil {
				t.Fatalf("route: %v", err)
			}
			if page.ID != tt.wantID || remainder != tt.remainder {
				t.Fatalf("expected page %d remainder %q, got %d %q", tt.wantID, tt.remainder, page.ID, remainder)
			}
		})
	}
}

func TestPageTreeDeleteRemovesSubtreeAndReferences(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	ctx := t.Context()

	home := mustCreatePage(t, tree, nil, "Home", ContentTypeHome)
	blog := mustCreatePage(t, tree, home, "Blog", ContentTypeBlogListing)
	post := mustCreatePage(t, tree, blog, "Post", ContentTypeBlogDetail)

	if err := gdb.Create(&db.BlogDetailPage{PageID: post.ID, PageContent: db.PageContent{CustomTitle: "Post"}}).Error; err != nil {
		t.Fatalf("seed detail: %v", err)
	}
	homeRow := db.HomePage{PageID: home.ID, BannerCTAID: &blog.ID}
	if err := gdb.Create(&homeRow).Error; err != nil {
		t.Fatalf("seed home: %v", err)
	}
	menu := db.Menu{Title: "Main", Slug: "main", Items: []db.MenuItem{{LinkPageID: &post.ID}, {LinkURL: strPtr("https://example.com")}}}
	if err := gdb.Create(&menu).Error; err != nil {
		t.Fatalf("seed menu: %v", err)
	}

	if err := tree.Delete(ctx, blog.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var pageCount, detailCount, itemCount int64
	gdb.Unscoped().Model(&db.Page{}).Count(&pageCount)
	gdb.Unscoped().Model(&db.BlogDetailPage{}).Count(&detailCount)
	gdb.Model(&db.MenuItem{}).Count(&itemCount)
	if pageCount != 1 || detailCount != 0 || itemCount != 1 {
		t.Fatalf("expected 1 page, 0 details, 1 menu item; got %d %d %d", pageCount, detailCount, itemCount)
	}

	var reloaded db.HomePage
	if err := gdb.First(&reloaded, homeRow.ID).Error; err != nil {
		t.Fatalf("reload home: %v", err)
	}
	if reloaded.BannerCTAID != nil {
		t.Fatalf("expected banner cta to be cleared, got %v", *reloaded.BannerCTAID)
	}

	if _, err := tree.Get(ctx, post.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected deleted descendant to be gone, got %v", err)
	}
}

func strPtr(v string) *string { return &v }
