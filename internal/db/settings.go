package db

import "gorm.io/gorm"

// SocialMediaSettings 每个站点一条记录，所有链接均为可选。
type SocialMediaSettings struct {
	gorm.Model
	SiteID   uint   `gorm:"uniqueIndex;not null"`
	Facebook string `gorm:"size:200"`
	Twitter  string `gorm:"size:200"`
	YouTube  string `gorm:"column:youtube;size:200"`
}

// TableName 自定义表名以保持命名一致。
func (SocialMediaSettings) TableName() string {
	return "social_media_settings"
}
