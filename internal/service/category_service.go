package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

var (
	ErrCategoryExists      = errors.New("category already exists")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrCategoryNameMissing = errors.New("category name is required")
)

// CategoryService manages blog category snippets.
type CategoryService struct {
	db *gorm.DB
}

// CategoryUsage 描述分类被已发布文章引用的次数
type CategoryUsage struct {
	ID    uint
	Name  string
	Slug  string
	Count int64
}

// NewCategoryService creates a CategoryService instance.
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns categories ordered by name.
func (s *CategoryService) List() ([]db.BlogCategory, error) {
	var categories []db.BlogCategory
	if err := s.db.Order("name asc").Order("id asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(id uint) (*db.BlogCategory, error) {
	var category db.BlogCategory
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// GetBySlug fetches a category by its URL slug.
func (s *CategoryService) GetBySlug(categorySlug string) (*db.BlogCategory, error) {
	categorySlug = strings.TrimSpace(categorySlug)
	if categorySlug == "" {
		return nil, ErrCategoryNotFound
	}

	var category db.BlogCategory
	if err := s.db.Where("slug = ?", categorySlug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return &category, nil
}

// Create adds a category. An empty slug is derived from the name.
func (s *CategoryService) Create(name, categorySlug string) (*db.BlogCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameMissing
	}
	categorySlug = normalizeSlug(categorySlug, name)
	if categorySlug == "" {
		return nil, ErrPageSlugInvalid
	}

	if err := s.ensureUnique(categorySlug, 0); err != nil {
		return nil, err
	}

	category := db.BlogCategory{Name: name, Slug: categorySlug}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// Update renames a category and optionally changes its slug.
func (s *CategoryService) Update(id uint, name, categorySlug string) (*db.BlogCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameMissing
	}

	category, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	newSlug := category.Slug
	if strings.TrimSpace(categorySlug) != "" {
		newSlug = normalizeSlug(categorySlug, name)
	}
	if newSlug != category.Slug {
		if err := s.ensureUnique(newSlug, category.ID); err != nil {
			return nil, err
		}
	}

	category.Name = name
	category.Slug = newSlug
	if err := s.db.Save(category).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// Delete removes a category and detaches it from every blog entry.
func (s *CategoryService) Delete(id uint) error {
	category, err := s.Get(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM blog_detail_page_categories WHERE blog_category_id = ?", category.ID).Error; err != nil {
			return fmt.Errorf("detach category: %w", err)
		}
		if err := tx.Unscoped().Delete(&db.BlogCategory{}, category.ID).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// PublishedUsage 返回分类在已发布文章中的使用统计
func (s *CategoryService) PublishedUsage() ([]CategoryUsage, error) {
	var rows []CategoryUsage
	err := s.db.Table("blog_categories").
		Select("blog_categories.id, blog_categories.name, blog_categories.slug, COUNT(DISTINCT blog_detail_pages.id) AS count").
		Joins("JOIN blog_detail_page_categories ON blog_detail_page_categories.blog_category_id = blog_categories.id").
		Joins("JOIN blog_detail_pages ON blog_detail_pages.id = blog_detail_page_categories.blog_detail_page_id").
		Joins("JOIN pages ON pages.id = blog_detail_pages.page_id").
		Where("pages.live = ? AND pages.deleted_at IS NULL AND blog_categories.deleted_at IS NULL", true).
		Group("blog_categories.id, blog_categories.name, blog_categories.slug").
		Order("blog_categories.name asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("category usage: %w", err)
	}
	return rows, nil
}

func (s *CategoryService) ensureUnique(categorySlug string, exceptID uint) error {
	query := s.db.Unscoped().Model(&db.BlogCategory{}).Where("slug = ?", categorySlug)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check category slug: %w", err)
	}
	if count > 0 {
		return ErrCategoryExists
	}
	return nil
}
