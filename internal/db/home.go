package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HomePage is the landing page. At most one exists site-wide.
type HomePage struct {
	gorm.Model
	PageID         uint   `gorm:"uniqueIndex;not null"`
	Page           Page   `gorm:"constraint:OnDelete:CASCADE"`
	BannerTitle    string `gorm:"size:100"`
	BannerSubtitle string `gorm:"type:text"`
	BannerImageID  *uint
	BannerImage    *Image `gorm:"foreignKey:BannerImageID"`
	BannerCTAID    *uint  `gorm:"column:banner_cta_id"`
	BannerCTA      *Page  `gorm:"foreignKey:BannerCTAID"`
	Content        datatypes.JSON
	CarouselImages []HomePageCarouselImage `gorm:"constraint:OnDelete:CASCADE"`
}

// HomePageCarouselImage 首页轮播图，按 SortOrder 排序。
type HomePageCarouselImage struct {
	ID         uint   `gorm:"primaryKey"`
	HomePageID uint   `gorm:"index;not null"`
	SortOrder  int    `gorm:"default:0"`
	Title      string `gorm:"size:40"`
	Text       string `gorm:"type:text"`
	ImageID    *uint
	Image      *Image
}
