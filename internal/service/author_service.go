package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrAuthorNotFound 在指定作者不存在时返回
	ErrAuthorNotFound = errors.New("author not found")
	// ErrAuthorInvalidInput 在输入数据不完整时返回
	ErrAuthorInvalidInput = errors.New("invalid author input")
	// ErrAuthorInUse 作者仍被博客文章引用
	ErrAuthorInUse = errors.New("author is linked to blog entries")
)

const authorNameMaxLength = 100

// AuthorService 负责维护博客作者片段
type AuthorService struct {
	db *gorm.DB
}

// NewAuthorService 构造 AuthorService
func NewAuthorService(gdb *gorm.DB) *AuthorService {
	return &AuthorService{db: gdb}
}

// AuthorInput 描述创建或更新作者时可设置的字段
type AuthorInput struct {
	Name    string
	Website string
	ImageID *uint
}

// List 返回全部作者，按名称排序
func (s *AuthorService) List() ([]db.BlogAuthor, error) {
	var authors []db.BlogAuthor
	if err := s.db.Preload("Image").Order("name ASC, id ASC").Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// Get 根据主键获取作者
func (s *AuthorService) Get(id uint) (*db.BlogAuthor, error) {
	var author db.BlogAuthor
	if err := s.db.Preload("Image").First(&author, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("get author: %w", err)
	}
	return &author, nil
}

// Create 新建作者
func (s *AuthorService) Create(input AuthorInput) (*db.BlogAuthor, error) {
	if err := validateAuthorInput(input); err != nil {
		return nil, err
	}

	author := db.BlogAuthor{
		Name:    strings.TrimSpace(input.Name),
		Website: strings.TrimSpace(input.Website),
		ImageID: input.ImageID,
	}
	if err := s.db.Create(&author).Error; err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return &author, nil
}

// Update 更新指定作者
func (s *AuthorService) Update(id uint, input AuthorInput) (*db.BlogAuthor, error) {
	if err := validateAuthorInput(input); err != nil {
		return nil, err
	}

	var author db.BlogAuthor
	if err := s.db.First(&author, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	author.Name = strings.TrimSpace(input.Name)
	author.Website = strings.TrimSpace(input.Website)
	author.ImageID = input.ImageID

	if err := s.db.Save(&author).Error; err != nil {
		return nil, fmt.Errorf("update author: %w", err)
	}
	return &author, nil
}

// Delete 删除作者；仍被文章引用时拒绝
func (s *AuthorService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	var links int64
	if err := s.db.Model(&db.BlogAuthorLink{}).Where("blog_author_id = ?", id).Count(&links).Error; err != nil {
		return fmt.Errorf("count author links: %w", err)
	}
	if links > 0 {
		return ErrAuthorInUse
	}

	if err := s.db.Delete(&db.BlogAuthor{}, id).Error; err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	return nil
}

func validateAuthorInput(input AuthorInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrAuthorInvalidInput)
	}
	if utf8.RuneCountInString(name) > authorNameMaxLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrAuthorInvalidInput, authorNameMaxLength)
	}
	if website := strings.TrimSpace(input.Website); website != "" && !isHTTPURL(website) {
		return fmt.Errorf("%w: website must be an http(s) URL", ErrAuthorInvalidInput)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
