package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/seed"
	"github.com/trainclimb/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type routerFixture struct {
	engine    *gin.Engine
	gdb       *gorm.DB
	site      *seed.Result
	uploadDir string
}

func setupRouterTest(t *testing.T) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	uploadDir := t.TempDir()
	result, err := seed.Run(t.Context(), gdb, seed.Options{UploadDir: uploadDir, UploadURL: "/uploads"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine, err := SetupRouter(gdb, Options{
		SessionSecret:      "test-secret",
		UploadDir:          uploadDir,
		UploadURLPath:      "/uploads",
		SiteBaseURL:        "https://trainclimb.example",
		CORSAllowedOrigins: []string{"*"},
	})
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	return routerFixture{engine: engine, gdb: gdb, site: result, uploadDir: uploadDir}
}

func (f routerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestPublicPagesResolveThroughTree(t *testing.T) {
	f := setupRouterTest(t)

	tests := []struct {
		name     string
		path     string
		status   int
		contains []string
		excludes []string
	}{
		{name: "home", path: "/", status: http.StatusOK, contains: []string{"Train smarter, climb harder", "Outdoor season", "<strong>trips</strong>"}},
		{name: "listing", path: "/blog/", status: http.StatusOK, contains: []string{"Training journal", "Hangboard basics", "Finger injuries explained"}},
		{name: "entry", path: "/blog/hangboard-basics/", status: http.StatusOK, contains: []string{"<strong>short hangs</strong>", "Ada Crimp"}},
		{name: "article", path: "/blog/finger-injuries-explained/", status: http.StatusOK, contains: []string{"What pulleys are"}},
		{name: "latest", path: "/blog/latest/", status: http.StatusOK, contains: []string{"Finger injuries explained"}, excludes: []string{"Hangboard basics"}},
		{name: "category", path: "/blog/category/planning/", status: http.StatusOK, contains: []string{"Planning a bouldering season"}, excludes: []string{"Hangboard basics"}},
		{name: "unknown category", path: "/blog/category/bouldering/", status: http.StatusOK, contains: []string{"Hangboard basics", "Finger injuries explained"}},
		{name: "empty category slug", path: "/blog/category//", status: http.StatusOK, contains: []string{"Hangboard basics", "Finger injuries explained"}},
		{name: "subscribe", path: "/blog/subscribe/", status: http.StatusOK, contains: []string{"/feed.xml"}},
		{name: "unknown listing route", path: "/blog/archive/", status: http.StatusNotFound},
		{name: "entry is not routable", path: "/blog/hangboard-basics/comments/", status: http.StatusNotFound},
		{name: "missing page", path: "/about/", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.get(t, tt.path)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rr.Code)
			}
			body := rr.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Fatalf("expected body to contain %q", want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(body, unwanted) {
					t.Fatalf("expected body not to contain %q", unwanted)
				}
			}
		})
	}
}

func TestPublicPagesInjectMenusAndSocialLinks(t *testing.T) {
	f := setupRouterTest(t)

	body := f.get(t, "/blog/").Body.String()
	for _, want := range []string{`href="/blog/latest/"`, ">Journal<", "youtube.com/@trainclimb"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected page chrome to contain %q", want)
		}
	}
}

func TestPublicPagesRedirectMissingSlash(t *testing.T) {
	f := setupRouterTest(t)

	rr := f.get(t, "/blog?page=2")
	if rr.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/blog/?page=2" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestDraftAndRestrictedPagesAreHidden(t *testing.T) {
	f := setupRouterTest(t)
	ctx := t.Context()
	tree := service.NewPageTreeService(f.gdb)
	blog := service.NewBlogService(f.gdb, tree)

	draft, err := blog.CreateDetail(ctx, &f.site.Listing.PageID, service.BlogInput{
		Title:       "Unfinished draft",
		CustomTitle: "Unfinished draft",
		AuthorIDs:   []uint{f.site.Authors[0].ID},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := tree.SetRestricted(ctx, f.site.Posts[0].PageID, true); err != nil {
		t.Fatalf("restrict: %v", err)
	}

	if rr := f.get(t, draft.Page.URLPath); rr.Code != http.StatusNotFound {
		t.Fatalf("expected draft to 404, got %d", rr.Code)
	}
	if rr := f.get(t, "/blog/hangboard-basics/"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected restricted entry to 404, got %d", rr.Code)
	}

	body := f.get(t, "/blog/").Body.String()
	if strings.Contains(body, "Unfinished draft") || strings.Contains(body, "Hangboard basics") {
		t.Fatal("listing should hide drafts and restricted entries")
	}
}

func TestContentAPIExposesHomeBanner(t *testing.T) {
	f := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v2/pages/%d", f.site.Home.PageID), nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS header, got %v", rr.Header())
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["banner_title"] != "Train smarter, climb harder" {
		t.Fatalf("unexpected banner_title %v", payload["banner_title"])
	}
	if payload["banner_subtitle"] != "Plans and notes for *every* climber" {
		t.Fatalf("banner_subtitle should be served verbatim, got %v", payload["banner_subtitle"])
	}
	image, ok := payload["banner_image"].(map[string]any)
	if !ok || image["title"] != "Banner" {
		t.Fatalf("unexpected banner_image %v", payload["banner_image"])
	}
	if _, ok := payload["banner_cta"]; !ok {
		t.Fatal("expected banner_cta key even when unset")
	}
}

func TestContentAPIOtherTypesExposeOnlyBasics(t *testing.T) {
	f := setupRouterTest(t)

	rr := f.get(t, fmt.Sprintf("/api/v2/pages/%d", f.site.Listing.PageID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload) != 3 {
		t.Fatalf("expected only id, meta and title, got %v", payload)
	}
	meta := payload["meta"].(map[string]any)
	if meta["html_url"] != "https://trainclimb.example/blog/" {
		t.Fatalf("unexpected html_url %v", meta["html_url"])
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v2/pages/1", nil)
	preflight.Header.Set("Origin", "https://app.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr = httptest.NewRecorder()
	f.engine.ServeHTTP(rr, preflight)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
}

func TestSitemapAndFeed(t *testing.T) {
	f := setupRouterTest(t)

	sitemap := f.get(t, "/sitemap.xml")
	if sitemap.Code != http.StatusOK || !strings.Contains(sitemap.Body.String(), "<loc>https://trainclimb.example/blog/hangboard-basics/</loc>") {
		t.Fatalf("unexpected sitemap: %d %s", sitemap.Code, sitemap.Body.String())
	}

	feed := f.get(t, "/feed.xml")
	if feed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", feed.Code)
	}
	if ct := feed.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := strings.Count(feed.Body.String(), "<item>"); got != 3 {
		t.Fatalf("expected 3 feed items, got %d", got)
	}
}

func TestAdminAPIRequiresLogin(t *testing.T) {
	f := setupRouterTest(t)
	if _, err := db.CreateEditor(f.gdb, "editor", "s3cret"); err != nil {
		t.Fatalf("create editor: %v", err)
	}

	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/api/panels/home.HomePage", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	bad := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username":"editor","password":"nope"}`))
	bad.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rr, bad)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong password, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	login := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username":"editor","password":"s3cret"}`))
	login.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rr, login)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()

	authed := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for _, cookie := range cookies {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		f.engine.ServeHTTP(rec, req)
		return rec
	}

	if rec := authed(http.MethodGet, "/admin/api/panels/home.HomePage", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected panel, got %d", rec.Code)
	}
	if rec := authed(http.MethodPost, "/admin/api/categories", `{"name":"Training"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected duplicate category conflict, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := authed(http.MethodDelete, fmt.Sprintf("/admin/api/authors/%d", f.site.Authors[0].ID), ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected linked author to be protected, got %d", rec.Code)
	}
}

func TestAdminCreatePageChecksInlineCounts(t *testing.T) {
	f := setupRouterTest(t)
	if _, err := db.CreateEditor(f.gdb, "editor", "s3cret"); err != nil {
		t.Fatalf("create editor: %v", err)
	}

	rr := httptest.NewRecorder()
	login := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader("username=editor&password=s3cret"))
	login.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f.engine.ServeHTTP(rr, login)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rr.Code)
	}
	cookies := rr.Result().Cookies()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/api/pages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for _, cookie := range cookies {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		f.engine.ServeHTTP(rec, req)
		return rec
	}

	authors := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		authors = append(authors, fmt.Sprint(f.site.Authors[0].ID))
	}
	tooMany := fmt.Sprintf(`{"type":"blog.BlogDetailPage","parent_id":%d,"title":"Crowded","custom_title":"Crowded","author_ids":[%s]}`,
		f.site.Listing.PageID, strings.Join(authors, ","))
	if rec := post(tooMany); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for five authors, got %d", rec.Code)
	}

	ok := fmt.Sprintf(`{"type":"blog.ArticleBlogPage","parent_id":%d,"title":"Rest days","custom_title":"Rest days","subtitle":"Why less is more","author_ids":[%d]}`,
		f.site.Listing.PageID, f.site.Authors[1].ID)
	rec := post(ok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Type string `json:"type"`
		Page struct {
			URLPath string `json:"URLPath"`
			Live    bool   `json:"Live"`
		} `json:"page"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Type != "blog.ArticleBlogPage" || payload.Page.URLPath != "/blog/rest-days/" || payload.Page.Live {
		t.Fatalf("unexpected created page %+v", payload)
	}
}

func TestSetupRouterServesUploads(t *testing.T) {
	f := setupRouterTest(t)

	if err := os.WriteFile(filepath.Join(f.uploadDir, "example.txt"), []byte("hello uploads"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	rr := f.get(t, "/uploads/example.txt")
	if rr.Code != http.StatusOK || rr.Body.String() != "hello uploads" {
		t.Fatalf("unexpected upload response %d %q", rr.Code, rr.Body.String())
	}

	if rr := f.get(t, "/static/site.css"); rr.Code != http.StatusOK {
		t.Fatalf("expected embedded stylesheet, got %d", rr.Code)
	}
}

func TestFormatDate(t *testing.T) {
	day := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	if got := formatDate(&day); got != "March 9, 2024" {
		t.Fatalf("unexpected date %q", got)
	}
	if formatDate(nil) != "" {
		t.Fatal("nil time should render empty")
	}
}

func TestAdminUpdateCannotStripLiveAuthors(t *testing.T) {
	f := setupRouterTest(t)
	if _, err := db.CreateEditor(f.gdb, "editor", "s3cret"); err != nil {
		t.Fatalf("create editor: %v", err)
	}

	rr := httptest.NewRecorder()
	login := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"username":"editor","password":"s3cret"}`))
	login.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rr, login)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rr.Code)
	}
	cookies := rr.Result().Cookies()

	post := f.site.Posts[0]
	for _, body := range []string{
		`{"custom_title":"Hangboard basics","author_ids":[0]}`,
		`{"custom_title":"Hangboard basics","author_ids":[]}`,
	} {
		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/api/pages/%d", post.PageID), strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for _, cookie := range cookies {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		f.engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}

	entry, err := service.NewBlogService(f.gdb, service.NewPageTreeService(f.gdb)).Get(t.Context(), post.PageID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !entry.Page.Live || len(entry.AuthorLinks) != 1 {
		t.Fatalf("expected the live post to keep its author, got live=%v authors=%d", entry.Page.Live, len(entry.AuthorLinks))
	}
}
