package service

import (
	"sort"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

// Content types stored on db.Page.ContentType.
const (
	ContentTypeHome        = "home.HomePage"
	ContentTypeBlogListing = "blog.BlogListingPage"
	ContentTypeBlogDetail  = "blog.BlogDetailPage"
)

// PageType declares a page kind of the content tree.
type PageType struct {
	ContentType string
	Label       string
	Template    string
	// MaxCount limits how many pages of this type may exist; zero means unlimited.
	MaxCount int
	// Routable page types accept sub-paths below their own URL.
	Routable bool
	// ParentTypes restricts where the type may be created. Empty allows any
	// parent, including none.
	ParentTypes []string
	cleanup     func(tx *gorm.DB, pageIDs []uint) error
}

var pageTypes = map[string]PageType{
	ContentTypeHome: {
		ContentType: ContentTypeHome,
		Label:       "Home Page",
		Template:    "home_page.html",
		MaxCount:    1,
		cleanup:     cleanupHomePages,
	},
	ContentTypeBlogListing: {
		ContentType: ContentTypeBlogListing,
		Label:       "Blog Listing Page",
		Template:    "blog_listing_page.html",
		Routable:    true,
		ParentTypes: []string{ContentTypeHome, ContentTypeBlogListing},
		cleanup: func(tx *gorm.DB, pageIDs []uint) error {
			return tx.Unscoped().Where("page_id IN ?", pageIDs).Delete(&db.BlogListingPage{}).Error
		},
	},
	ContentTypeBlogDetail: {
		ContentType: ContentTypeBlogDetail,
		Label:       "Blog Detail Page",
		Template:    "blog_detail_page.html",
		ParentTypes: []string{ContentTypeBlogListing},
		cleanup:     cleanupBlogDetailPages,
	},
}

// LookupPageType returns the declaration for a content type.
func LookupPageType(contentType string) (PageType, bool) {
	pt, ok := pageTypes[contentType]
	return pt, ok
}

// AllowsParent reports whether the type may be created below a page of parentType.
func (pt PageType) AllowsParent(parentType string) bool {
	if len(pt.ParentTypes) == 0 {
		return true
	}
	for _, allowed := range pt.ParentTypes {
		if allowed == parentType {
			return true
		}
	}
	return false
}

// PageTypes lists every declared page type ordered by content type.
func PageTypes() []PageType {
	out := make([]PageType, 0, len(pageTypes))
	for _, pt := range pageTypes {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentType < out[j].ContentType })
	return out
}

func cleanupHomePages(tx *gorm.DB, pageIDs []uint) error {
	var homeIDs []uint
	if err := tx.Model(&db.HomePage{}).Unscoped().Where("page_id IN ?", pageIDs).Pluck("id", &homeIDs).Error; err != nil {
		return err
	}
	if len(homeIDs) > 0 {
		if err := tx.Where("home_page_id IN ?", homeIDs).Delete(&db.HomePageCarouselImage{}).Error; err != nil {
			return err
		}
	}
	return tx.Unscoped().Where("page_id IN ?", pageIDs).Delete(&db.HomePage{}).Error
}

func cleanupBlogDetailPages(tx *gorm.DB, pageIDs []uint) error {
	var detailIDs []uint
	if err := tx.Model(&db.BlogDetailPage{}).Unscoped().Where("page_id IN ?", pageIDs).Pluck("id", &detailIDs).Error; err != nil {
		return err
	}
	if len(detailIDs) > 0 {
		if err := tx.Where("blog_detail_page_id IN ?", detailIDs).Delete(&db.BlogAuthorLink{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM blog_detail_page_categories WHERE blog_detail_page_id IN ?", detailIDs).Error; err != nil {
			return err
		}
	}
	return tx.Unscoped().Where("page_id IN ?", pageIDs).Delete(&db.BlogDetailPage{}).Error
}
