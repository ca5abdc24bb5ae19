package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Blog detail variants.
const (
	BlogVariantDetail  = "detail"
	BlogVariantArticle = "article"
)

// BlogListingPage is the index page of blog entries. Its posts are computed per request.
type BlogListingPage struct {
	gorm.Model
	PageID      uint   `gorm:"uniqueIndex;not null"`
	Page        Page   `gorm:"constraint:OnDelete:CASCADE"`
	CustomTitle string `gorm:"size:100;not null"`
}

// PageContent 是详情页与文章页共享的内容字段。
type PageContent struct {
	CustomTitle string `gorm:"size:100;not null"`
	BlogImageID *uint
	Content     datatypes.JSON
}

// BlogDetailPage is a blog entry. Articles are the same composition with
// Variant set to BlogVariantArticle plus Subtitle and IntroImage.
type BlogDetailPage struct {
	gorm.Model
	PageID  uint   `gorm:"uniqueIndex;not null"`
	Page    Page   `gorm:"constraint:OnDelete:CASCADE"`
	Variant string `gorm:"size:20;not null;default:detail;index"`
	PageContent
	BlogImage    *Image `gorm:"foreignKey:BlogImageID"`
	Subtitle     string `gorm:"size:100"`
	IntroImageID *uint
	IntroImage   *Image           `gorm:"foreignKey:IntroImageID"`
	Categories   []BlogCategory   `gorm:"many2many:blog_detail_page_categories;"`
	AuthorLinks  []BlogAuthorLink `gorm:"constraint:OnDelete:CASCADE"`
}

// IsArticle reports whether the entry uses the article presentation.
func (p BlogDetailPage) IsArticle() bool {
	return p.Variant == BlogVariantArticle
}

// Authors returns the linked authors in link order.
func (p BlogDetailPage) Authors() []BlogAuthor {
	authors := make([]BlogAuthor, 0, len(p.AuthorLinks))
	for _, link := range p.AuthorLinks {
		authors = append(authors, link.BlogAuthor)
	}
	return authors
}

// HasCategory reports whether the entry is tagged with the category.
func (p BlogDetailPage) HasCategory(id uint) bool {
	for _, category := range p.Categories {
		if category.ID == id {
			return true
		}
	}
	return false
}

// BlogAuthorLink orders authors on a blog entry.
type BlogAuthorLink struct {
	ID               uint `gorm:"primaryKey"`
	BlogDetailPageID uint `gorm:"index;not null"`
	BlogAuthorID     uint `gorm:"index;not null"`
	BlogAuthor       BlogAuthor
	SortOrder        int `gorm:"default:0"`
}

// BlogAuthor is a reusable author snippet.
type BlogAuthor struct {
	gorm.Model
	Name    string `gorm:"size:100;not null"`
	Website string `gorm:"size:200"`
	ImageID *uint
	Image   *Image
}

// BlogCategory is a taxonomy snippet; Slug identifies it in URLs.
type BlogCategory struct {
	gorm.Model
	Name string `gorm:"size:255;not null"`
	Slug string `gorm:"size:255;uniqueIndex;not null"`
}
