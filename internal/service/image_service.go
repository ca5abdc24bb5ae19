package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trainclimb/internal/db"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

var (
	ErrImageNotFound    = errors.New("image not found")
	ErrImageUnsupported = errors.New("only gif, jpeg, png and webp images are supported")
	ErrImageTooLarge    = errors.New("image exceeds the upload limit")
	ErrImageInUse       = errors.New("image is referenced by content")
)

// MaxImageSize caps a single upload.
const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"gif":  ".gif",
	"jpeg": ".jpg",
	"png":  ".png",
	"webp": ".webp",
}

// ImageService stores uploaded images on disk and their metadata in the database.
type ImageService struct {
	db      *gorm.DB
	dir     string
	urlPath string
}

// ImageListResult aggregates paginated images.
type ImageListResult struct {
	Items      []db.Image
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// NewImageService creates an ImageService writing into dir, served under urlPath.
func NewImageService(gdb *gorm.DB, dir, urlPath string) *ImageService {
	if strings.TrimSpace(dir) == "" {
		dir = "./uploads"
	}
	if strings.TrimSpace(urlPath) == "" {
		urlPath = "/uploads"
	}
	return &ImageService{db: gdb, dir: dir, urlPath: "/" + strings.Trim(urlPath, "/")}
}

// Dir is the directory uploads are written to.
func (s *ImageService) Dir() string {
	return s.dir
}

// URLPath is the public prefix uploads are served under.
func (s *ImageService) URLPath() string {
	return s.urlPath
}

// Upload decodes the image header, writes the file under a uuid name and
// records it. The title falls back to the original file name.
func (s *ImageService) Upload(title, originalName string, r io.Reader) (*db.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrImageUnsupported
	}
	ext, ok := imageExtensions[format]
	if !ok {
		return nil, ErrImageUnsupported
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.New().String(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	}
	if title == "" || title == "." {
		title = fileName
	}

	img := db.Image{
		Title:    title,
		FileName: fileName,
		URL:      path.Join(s.urlPath, fileName),
		Width:    cfg.Width,
		Height:   cfg.Height,
		FileSize: int64(len(data)),
	}
	if err := s.db.Create(&img).Error; err != nil {
		_ = os.Remove(filepath.Join(s.dir, fileName))
		return nil, fmt.Errorf("create image: %w", err)
	}
	return &img, nil
}

// List returns images newest first.
func (s *ImageService) List(page, perPage int) (ImageListResult, error) {
	result := ImageListResult{
		Page:    normalizePage(page),
		PerPage: normalizePerPage(perPage, 24),
	}

	query := s.db.Model(&db.Image{})
	if err := query.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("count images: %w", err)
	}
	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	offset := (result.Page - 1) * result.PerPage

	if err := query.Order("created_at desc").Order("id desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("list images: %w", err)
	}
	return result, nil
}

// Get fetches an image by id.
func (s *ImageService) Get(id uint) (*db.Image, error) {
	var img db.Image
	if err := s.db.First(&img, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// URLs maps image ids to their public URLs. Unknown ids are skipped.
func (s *ImageService) URLs(ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var images []db.Image
	if err := s.db.Select("id", "url").Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("load image urls: %w", err)
	}
	for _, img := range images {
		out[img.ID] = img.URL
	}
	return out, nil
}

// Delete removes an image that no content refers to, together with its file.
func (s *ImageService) Delete(id uint) error {
	img, err := s.Get(id)
	if err != nil {
		return err
	}

	refs := []struct {
		model  any
		column string
	}{
		{&db.HomePage{}, "banner_image_id"},
		{&db.HomePageCarouselImage{}, "image_id"},
		{&db.BlogDetailPage{}, "blog_image_id"},
		{&db.BlogDetailPage{}, "intro_image_id"},
		{&db.BlogAuthor{}, "image_id"},
	}
	for _, ref := range refs {
		var count int64
		if err := s.db.Model(ref.model).Where(ref.column+" = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("count image references: %w", err)
		}
		if count > 0 {
			return ErrImageInUse
		}
	}

	if err := s.db.Unscoped().Delete(&db.Image{}, img.ID).Error; err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if err := os.Remove(filepath.Join(s.dir, img.FileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// ensureImages returns ErrImageNotFound unless every non-zero id names a stored image.
func ensureImages(ctx context.Context, gdb *gorm.DB, ids ...uint) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := gdb.WithContext(ctx).Model(&db.Image{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return fmt.Errorf("check images: %w", err)
	}
	if int(count) != len(ids) {
		return ErrImageNotFound
	}
	return nil
}

func derefIDs(ptrs ...*uint) []uint {
	ids := make([]uint, 0, len(ptrs))
	for _, ptr := range ptrs {
		if ptr != nil {
			ids = append(ids, *ptr)
		}
	}
	return ids
}
