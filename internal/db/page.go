package db

import (
	"time"

	"gorm.io/gorm"
)

// PathStep is the width of one tree level inside Page.Path.
const PathStep = 4

// Page is a node of the content tree. Type specific fields live in the
// table named by ContentType, keyed by PageID.
//
// Path 采用物化路径：每层 4 个 base36 字符，子孙节点共享祖先前缀。
type Page struct {
	gorm.Model
	ParentID         *uint  `gorm:"index;uniqueIndex:idx_pages_parent_slug"`
	Path             string `gorm:"size:255;uniqueIndex;not null"`
	Depth            int    `gorm:"not null"`
	URLPath          string `gorm:"column:url_path;size:1024;index"`
	Title            string `gorm:"size:255;not null"`
	Slug             string `gorm:"size:255;not null;uniqueIndex:idx_pages_parent_slug"`
	ContentType      string `gorm:"size:100;index;not null"`
	Live             bool   `gorm:"index"`
	ViewRestricted   bool
	FirstPublishedAt *time.Time
	LastPublishedAt  *time.Time
}

// IsRoot reports whether the page sits at the top of its tree.
func (p Page) IsRoot() bool {
	return p.ParentID == nil
}

// Site maps a hostname to a root page.
type Site struct {
	gorm.Model
	Hostname      string `gorm:"size:255;uniqueIndex:idx_sites_host_port;not null"`
	Port          int    `gorm:"uniqueIndex:idx_sites_host_port;default:80"`
	SiteName      string `gorm:"size:255"`
	RootPageID    uint   `gorm:"not null"`
	RootPage      Page
	IsDefaultSite bool `gorm:"index"`
}
