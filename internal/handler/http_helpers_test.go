package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/panels"
	"github.com/trainclimb/internal/service"
)

func TestStatusForWrappedErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("load: %w", service.ErrPageNotFound), want: http.StatusNotFound},
		{err: panels.ErrUnknownPanel, want: http.StatusNotFound},
		{err: fmt.Errorf("save: %w", service.ErrCategoryExists), want: http.StatusConflict},
		{err: service.ErrPageTypeLimit, want: http.StatusConflict},
		{err: fmt.Errorf("validate: %w", service.ErrAuthorCount), want: http.StatusBadRequest},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondServiceErrorHidesUnexpectedErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/api/pages", nil)

	respondServiceError(c, errors.New("connection reset"), "加载页面失败")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := rr.Body.String(); body == "" || strings.Contains(body, "connection reset") {
		t.Fatalf("internal error leaked: %s", body)
	}
}

func TestMatchListingRoute(t *testing.T) {
	tests := []struct {
		remainder string
		name      string
		slug      string
		ok        bool
	}{
		{remainder: "latest/", name: RouteLatestPosts, ok: true},
		{remainder: "category/hang-board_2/", name: RouteCategoryView, slug: "hang-board_2", ok: true},
		{remainder: "category//", name: RouteCategoryView, slug: "", ok: true},
		{remainder: "subscribe/", name: RouteSubscribe, ok: true},
		{remainder: "latest", ok: false},
		{remainder: "category/a/b/", ok: false},
		{remainder: "archive/latest/", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.remainder, func(t *testing.T) {
			name, params, ok := matchListingRoute(tt.remainder)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if name != tt.name {
				t.Fatalf("expected route %q, got %q", tt.name, name)
			}
			if tt.name == RouteCategoryView && params["cat_slug"] != tt.slug {
				t.Fatalf("expected cat_slug %q, got %q", tt.slug, params["cat_slug"])
			}
		})
	}
}

func TestDistinctIDsDropsZeroAndRepeats(t *testing.T) {
	got := distinctIDs([]uint{0, 3, 1, 3, 0, 2})
	want := []uint{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(distinctIDs([]uint{0})) != 0 {
		t.Fatal("a lone zero id is not an author")
	}
}
