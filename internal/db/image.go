package db

import "gorm.io/gorm"

// Image 定义上传图片模型，宽高在上传时解析。
type Image struct {
	gorm.Model
	Title    string `gorm:"size:255;not null"`
	FileName string `gorm:"size:255;not null"`
	URL      string `gorm:"size:512;not null"`
	Width    int
	Height   int
	FileSize int64
}
