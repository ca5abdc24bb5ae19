package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrHomeNotFound     = errors.New("home page not found")
	ErrHomeInvalidInput = errors.New("invalid home page input")
	ErrCarouselCount    = errors.New("home page needs between 1 and 5 carousel images")
)

const (
	MinCarouselImages      = 1
	MaxCarouselImages      = 5
	bannerTitleMaxLength   = 100
	carouselTitleMaxLength = 40
)

// HomeInput carries the editable fields of the home page.
type HomeInput struct {
	Title          string
	Slug           string
	BannerTitle    string
	BannerSubtitle string
	BannerImageID  *uint
	BannerCTAID    *uint
	Content        json.RawMessage
	Carousel       []CarouselInput
}

// CarouselInput is one carousel slide, in display order.
type CarouselInput struct {
	Title   string
	Text    string
	ImageID *uint
}

// HomeService manages the singleton home page.
type HomeService struct {
	db   *gorm.DB
	tree *PageTreeService
}

// NewHomeService creates a HomeService backed by the page tree.
func NewHomeService(gdb *gorm.DB, tree *PageTreeService) *HomeService {
	return &HomeService{db: gdb, tree: tree}
}

// Current returns the home page of the site, if one was created.
func (s *HomeService) Current(ctx context.Context) (*db.HomePage, error) {
	var home db.HomePage
	if err := s.preload(s.db.WithContext(ctx)).Order("id asc").First(&home).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHomeNotFound
		}
		return nil, fmt.Errorf("get home page: %w", err)
	}
	return &home, nil
}

// GetByPage returns the home page stored for a tree node.
func (s *HomeService) GetByPage(ctx context.Context, pageID uint) (*db.HomePage, error) {
	var home db.HomePage
	if err := s.preload(s.db.WithContext(ctx)).Where("page_id = ?", pageID).First(&home).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHomeNotFound
		}
		return nil, fmt.Errorf("get home page: %w", err)
	}
	return &home, nil
}

// Create adds the home page to the tree. Only one may exist.
func (s *HomeService) Create(ctx context.Context, parentID *uint, input HomeInput) (*db.HomePage, error) {
	content, carousel, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	var homeID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		page, err := s.tree.WithDB(tx).Create(ctx, parentID, PageInput{
			Title:       input.Title,
			Slug:        input.Slug,
			ContentType: ContentTypeHome,
		})
		if err != nil {
			return err
		}

		home := db.HomePage{PageID: page.ID}
		applyHomeInput(&home, input, content)
		if err := tx.Omit("Page", "BannerImage", "BannerCTA", "CarouselImages").Create(&home).Error; err != nil {
			return fmt.Errorf("create home page: %w", err)
		}
		homeID = home.ID
		return replaceCarousel(tx, home.ID, carousel)
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, homeID)
}

// Update saves new banner, carousel and content values.
func (s *HomeService) Update(ctx context.Context, pageID uint, input HomeInput) (*db.HomePage, error) {
	home, err := s.GetByPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	content, carousel, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if strings.TrimSpace(input.Title) != "" {
			if _, err := s.tree.WithDB(tx).Update(ctx, pageID, input.Title, input.Slug); err != nil {
				return err
			}
		}
		applyHomeInput(home, input, content)
		if err := tx.Omit("Page", "BannerImage", "BannerCTA", "CarouselImages").Save(home).Error; err != nil {
			return fmt.Errorf("update home page: %w", err)
		}
		return replaceCarousel(tx, home.ID, carousel)
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, home.ID)
}

func (s *HomeService) get(ctx context.Context, id uint) (*db.HomePage, error) {
	var home db.HomePage
	if err := s.preload(s.db.WithContext(ctx)).First(&home, id).Error; err != nil {
		return nil, fmt.Errorf("reload home page: %w", err)
	}
	return &home, nil
}

func (s *HomeService) preload(gdb *gorm.DB) *gorm.DB {
	return gdb.
		Preload("Page").
		Preload("BannerImage").
		Preload("BannerCTA").
		Preload("CarouselImages", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc").Order("id asc") }).
		Preload("CarouselImages.Image")
}

func (s *HomeService) validate(ctx context.Context, input HomeInput) (datatypes.JSON, []db.HomePageCarouselImage, error) {
	bannerTitle := strings.TrimSpace(input.BannerTitle)
	if bannerTitle == "" {
		return nil, nil, fmt.Errorf("%w: banner title is required", ErrHomeInvalidInput)
	}
	if utf8.RuneCountInString(bannerTitle) > bannerTitleMaxLength {
		return nil, nil, fmt.Errorf("%w: banner title must be at most %d characters", ErrHomeInvalidInput, bannerTitleMaxLength)
	}
	if strings.TrimSpace(input.BannerSubtitle) == "" {
		return nil, nil, fmt.Errorf("%w: banner subtitle is required", ErrHomeInvalidInput)
	}
	if input.BannerImageID == nil {
		return nil, nil, fmt.Errorf("%w: banner image is required", ErrHomeInvalidInput)
	}
	if input.BannerCTAID != nil {
		if _, err := s.tree.Get(ctx, *input.BannerCTAID); err != nil {
			return nil, nil, fmt.Errorf("banner cta: %w", err)
		}
	}

	if n := len(input.Carousel); n < MinCarouselImages || n > MaxCarouselImages {
		return nil, nil, fmt.Errorf("%w: got %d", ErrCarouselCount, n)
	}
	carousel := make([]db.HomePageCarouselImage, 0, len(input.Carousel))
	for index, slide := range input.Carousel {
		title := strings.TrimSpace(slide.Title)
		if title == "" || utf8.RuneCountInString(title) > carouselTitleMaxLength {
			return nil, nil, fmt.Errorf("%w: carousel image %d needs a title of at most %d characters", ErrHomeInvalidInput, index+1, carouselTitleMaxLength)
		}
		if strings.TrimSpace(slide.Text) == "" {
			return nil, nil, fmt.Errorf("%w: carousel image %d needs text", ErrHomeInvalidInput, index+1)
		}
		if slide.ImageID == nil {
			return nil, nil, fmt.Errorf("%w: carousel image %d needs an image", ErrHomeInvalidInput, index+1)
		}
		carousel = append(carousel, db.HomePageCarouselImage{
			SortOrder: index,
			Title:     title,
			Text:      strings.TrimSpace(slide.Text),
			ImageID:   slide.ImageID,
		})
	}

	col, err := blocks.ParseColumn(input.Content)
	if err != nil {
		return nil, nil, err
	}
	col, err = col.Prepare(blocks.TypeCTA)
	if err != nil {
		return nil, nil, err
	}
	content, err := col.JSON()
	if err != nil {
		return nil, nil, fmt.Errorf("encode home content: %w", err)
	}

	imageIDs := derefIDs(input.BannerImageID)
	for _, slide := range carousel {
		imageIDs = append(imageIDs, derefIDs(slide.ImageID)...)
	}
	if err := ensureImages(ctx, s.db, append(imageIDs, col.ImageIDs()...)...); err != nil {
		return nil, nil, err
	}
	return content, carousel, nil
}

func applyHomeInput(home *db.HomePage, input HomeInput, content datatypes.JSON) {
	home.BannerTitle = strings.TrimSpace(input.BannerTitle)
	home.BannerSubtitle = strings.TrimSpace(input.BannerSubtitle)
	home.BannerImageID = input.BannerImageID
	home.BannerCTAID = input.BannerCTAID
	home.Content = content
}

func replaceCarousel(tx *gorm.DB, homeID uint, slides []db.HomePageCarouselImage) error {
	if err := tx.Where("home_page_id = ?", homeID).Delete(&db.HomePageCarouselImage{}).Error; err != nil {
		return fmt.Errorf("clear carousel: %w", err)
	}
	for i := range slides {
		slides[i].HomePageID = homeID
	}
	if err := tx.Omit("Image").Create(&slides).Error; err != nil {
		return fmt.Errorf("create carousel: %w", err)
	}
	return nil
}
