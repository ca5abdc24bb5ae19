package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

var (
	ErrMenuNotFound     = errors.New("menu not found")
	ErrMenuTitleMissing = errors.New("menu title is required")
	ErrMenuItemInvalid  = errors.New("invalid menu item")
)

const (
	menuTitleMaxLength     = 50
	menuLinkTitleMaxLength = 50
	menuLinkURLMaxLength   = 500
)

// MenuService manages navigation menus and their ordered items.
type MenuService struct {
	db *gorm.DB
}

// MenuInput is the editable part of a menu. Items replace the stored ones in order.
type MenuInput struct {
	Title string
	Slug  string
	Items []MenuItemInput
}

// MenuItemInput describes one link of a menu.
type MenuItemInput struct {
	LinkTitle    string
	LinkURL      string
	LinkPageID   *uint
	OpenInNewTab bool
}

// NewMenuService creates a MenuService instance.
func NewMenuService(gdb *gorm.DB) *MenuService {
	return &MenuService{db: gdb}
}

// List returns every menu with items in order.
func (s *MenuService) List() ([]db.Menu, error) {
	var menus []db.Menu
	if err := s.preloadItems(s.db).Order("title asc").Order("id asc").Find(&menus).Error; err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

// BySlug returns every menu keyed by slug, for template contexts.
func (s *MenuService) BySlug() (map[string]db.Menu, error) {
	menus, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]db.Menu, len(menus))
	for _, menu := range menus {
		out[menu.Slug] = menu
	}
	return out, nil
}

// Get fetches a menu by id.
func (s *MenuService) Get(id uint) (*db.Menu, error) {
	var menu db.Menu
	if err := s.preloadItems(s.db).First(&menu, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("get menu: %w", err)
	}
	return &menu, nil
}

// GetBySlug fetches a menu by slug.
func (s *MenuService) GetBySlug(menuSlug string) (*db.Menu, error) {
	var menu db.Menu
	if err := s.preloadItems(s.db).Where("slug = ?", strings.TrimSpace(menuSlug)).First(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("get menu by slug: %w", err)
	}
	return &menu, nil
}

// Create stores a menu. Colliding slugs get a numeric suffix.
func (s *MenuService) Create(input MenuInput) (*db.Menu, error) {
	title, items, err := validateMenuInput(input)
	if err != nil {
		return nil, err
	}

	var menu db.Menu
	err = s.db.Transaction(func(tx *gorm.DB) error {
		menuSlug, err := uniqueMenuSlug(tx, normalizeSlug(input.Slug, title), 0)
		if err != nil {
			return err
		}
		menu = db.Menu{Title: title, Slug: menuSlug}
		if err := tx.Create(&menu).Error; err != nil {
			return fmt.Errorf("create menu: %w", err)
		}
		return replaceMenuItems(tx, menu.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(menu.ID)
}

// Update replaces title, slug and items of a menu.
func (s *MenuService) Update(id uint, input MenuInput) (*db.Menu, error) {
	title, items, err := validateMenuInput(input)
	if err != nil {
		return nil, err
	}

	menu, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		menuSlug := menu.Slug
		if strings.TrimSpace(input.Slug) != "" {
			menuSlug, err = uniqueMenuSlug(tx, normalizeSlug(input.Slug, title), menu.ID)
			if err != nil {
				return err
			}
		}
		if err := tx.Model(&db.Menu{}).Where("id = ?", menu.ID).
			Updates(map[string]any{"title": title, "slug": menuSlug}).Error; err != nil {
			return fmt.Errorf("update menu: %w", err)
		}
		return replaceMenuItems(tx, menu.ID, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(menu.ID)
}

// Delete removes a menu and its items.
func (s *MenuService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", id).Delete(&db.MenuItem{}).Error; err != nil {
			return fmt.Errorf("delete menu items: %w", err)
		}
		if err := tx.Unscoped().Delete(&db.Menu{}, id).Error; err != nil {
			return fmt.Errorf("delete menu: %w", err)
		}
		return nil
	})
}

func (s *MenuService) preloadItems(gdb *gorm.DB) *gorm.DB {
	return gdb.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc").Order("id asc") }).
		Preload("Items.LinkPage")
}

func validateMenuInput(input MenuInput) (string, []db.MenuItem, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", nil, ErrMenuTitleMissing
	}
	if utf8.RuneCountInString(title) > menuTitleMaxLength {
		return "", nil, fmt.Errorf("%w: at most %d characters", ErrMenuTitleMissing, menuTitleMaxLength)
	}

	items := make([]db.MenuItem, 0, len(input.Items))
	for index, raw := range input.Items {
		item := db.MenuItem{
			SortOrder:    index,
			LinkPageID:   raw.LinkPageID,
			OpenInNewTab: raw.OpenInNewTab,
		}
		if linkTitle := strings.TrimSpace(raw.LinkTitle); linkTitle != "" {
			if utf8.RuneCountInString(linkTitle) > menuLinkTitleMaxLength {
				return "", nil, fmt.Errorf("%w: item %d title is too long", ErrMenuItemInvalid, index+1)
			}
			item.LinkTitle = &linkTitle
		}
		if linkURL := strings.TrimSpace(raw.LinkURL); linkURL != "" {
			if utf8.RuneCountInString(linkURL) > menuLinkURLMaxLength {
				return "", nil, fmt.Errorf("%w: item %d url is too long", ErrMenuItemInvalid, index+1)
			}
			item.LinkURL = &linkURL
		}
		items = append(items, item)
	}
	return title, items, nil
}

func replaceMenuItems(tx *gorm.DB, menuID uint, items []db.MenuItem) error {
	if err := tx.Where("menu_id = ?", menuID).Delete(&db.MenuItem{}).Error; err != nil {
		return fmt.Errorf("clear menu items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].MenuID = menuID
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("create menu items: %w", err)
	}
	return nil
}

// uniqueMenuSlug appends -2, -3... until the slug is free.
func uniqueMenuSlug(tx *gorm.DB, base string, exceptID uint) (string, error) {
	if base == "" {
		base = "menu"
	}
	candidate := base
	for n := 2; ; n++ {
		query := tx.Unscoped().Model(&db.Menu{}).Where("slug = ?", candidate)
		if exceptID != 0 {
			query = query.Where("id <> ?", exceptID)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", fmt.Errorf("check menu slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
