package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	// MenuPlaceholderLink is the link of an item that points nowhere.
	MenuPlaceholderLink = "#"
	// MenuMissingTitle is shown when an item has neither a title nor a page.
	MenuMissingTitle = "Missing title"
)

// Menu is a named, orderable list of links.
type Menu struct {
	gorm.Model
	Title string     `gorm:"size:50;not null"`
	Slug  string     `gorm:"size:100;uniqueIndex;not null"`
	Items []MenuItem `gorm:"constraint:OnDelete:CASCADE"`
}

// MenuItem is one navigation link of a menu.
type MenuItem struct {
	ID           uint    `gorm:"primaryKey"`
	MenuID       uint    `gorm:"index;not null"`
	SortOrder    int     `gorm:"default:0"`
	LinkTitle    *string `gorm:"size:50"`
	LinkURL      *string `gorm:"column:link_url;size:500"`
	LinkPageID   *uint
	LinkPage     *Page `gorm:"foreignKey:LinkPageID"`
	OpenInNewTab bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Link resolves the item target: the linked page first, then the literal
// URL, then the placeholder anchor.
func (m MenuItem) Link() string {
	if m.LinkPage != nil {
		return m.LinkPage.URLPath
	}
	if url := trimmed(m.LinkURL); url != "" {
		return url
	}
	return MenuPlaceholderLink
}

// DisplayTitle resolves the item label: the explicit title first, then the
// linked page title, then MenuMissingTitle.
func (m MenuItem) DisplayTitle() string {
	if title := trimmed(m.LinkTitle); title != "" {
		return title
	}
	if m.LinkPage != nil {
		return m.LinkPage.Title
	}
	return MenuMissingTitle
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
