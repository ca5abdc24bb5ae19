package view

import (
	"strings"
	"testing"

	"github.com/trainclimb/internal/db"
)

func TestSocialLinksSkipsEmpty(t *testing.T) {
	links := SocialLinks(&db.SocialMediaSettings{
		Facebook: "https://facebook.com/trainclimb",
		YouTube:  " https://youtube.com/@trainclimb ",
	})
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Key != "facebook" || links[1].Key != "youtube" {
		t.Fatalf("unexpected order: %+v", links)
	}
	if links[1].URL != "https://youtube.com/@trainclimb" {
		t.Fatalf("expected trimmed url, got %q", links[1].URL)
	}
	if SocialLinks(nil) != nil {
		t.Fatal("expected nil for missing settings")
	}
}

func TestSocialIconSVGFallsBack(t *testing.T) {
	if got := SocialIconSVG("YouTube"); !strings.Contains(got, "23.498") {
		t.Fatalf("expected youtube icon, got %q", got)
	}
	if SocialIconSVG("myspace") != defaultSocialIcon.SVG {
		t.Fatal("expected default icon")
	}
}
