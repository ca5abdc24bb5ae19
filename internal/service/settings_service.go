package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSocialURLInvalid 表示社交链接不是合法的 http(s) 地址。
var ErrSocialURLInvalid = errors.New("social media link must be an http(s) URL")

// SocialSettingsInput 用于更新站点的社交媒体链接，全部可选。
type SocialSettingsInput struct {
	Facebook string
	Twitter  string
	YouTube  string
}

// SocialSettingsService 提供每个站点社交媒体设置的读取与更新能力。
type SocialSettingsService struct {
	db *gorm.DB
}

// NewSocialSettingsService 构造 SocialSettingsService。
func NewSocialSettingsService(gdb *gorm.DB) *SocialSettingsService {
	return &SocialSettingsService{db: gdb}
}

// ForSite 读取站点设置，不存在时创建空记录。
func (s *SocialSettingsService) ForSite(siteID uint) (*db.SocialMediaSettings, error) {
	settings := db.SocialMediaSettings{SiteID: siteID}
	if err := s.db.Where("site_id = ?", siteID).FirstOrCreate(&settings).Error; err != nil {
		return nil, fmt.Errorf("load social settings: %w", err)
	}
	return &settings, nil
}

// Update 保存站点的社交媒体链接。
func (s *SocialSettingsService) Update(siteID uint, input SocialSettingsInput) (*db.SocialMediaSettings, error) {
	sanitized := db.SocialMediaSettings{
		SiteID:   siteID,
		Facebook: strings.TrimSpace(input.Facebook),
		Twitter:  strings.TrimSpace(input.Twitter),
		YouTube:  strings.TrimSpace(input.YouTube),
	}
	for name, value := range map[string]string{"facebook": sanitized.Facebook, "twitter": sanitized.Twitter, "youtube": sanitized.YouTube} {
		if value != "" && !isHTTPURL(value) {
			return nil, fmt.Errorf("%w: %s", ErrSocialURLInvalid, name)
		}
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "site_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"facebook", "twitter", "youtube", "updated_at"}),
	}).Create(&sanitized).Error; err != nil {
		return nil, fmt.Errorf("save social settings: %w", err)
	}

	return s.ForSite(siteID)
}
