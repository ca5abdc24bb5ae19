package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBlogListingNotFound = errors.New("blog listing page not found")
	ErrBlogPostNotFound    = errors.New("blog entry not found")
	ErrBlogInvalidInput    = errors.New("invalid blog input")
	ErrAuthorCount         = errors.New("a blog entry needs between 1 and 4 authors")
	ErrInvalidPublishState = errors.New("blog entry is missing required fields for publishing")
)

const (
	MinBlogAuthors       = 1
	MaxBlogAuthors       = 4
	customTitleMaxLength = 100
	subtitleMaxLength    = 100
)

// BlogDetailColumnTypes are the blocks a blog entry body accepts.
var BlogDetailColumnTypes = []string{
	blocks.TypeTitleAndText,
	blocks.TypeFullRichText,
	blocks.TypeSimpleRichText,
	blocks.TypeCards,
	blocks.TypeCTA,
}

// ListingInput represents fields accepted for a blog listing page.
type ListingInput struct {
	Title       string
	Slug        string
	CustomTitle string
}

// BlogInput represents fields accepted when creating or updating a blog entry.
// Subtitle and IntroImageID only apply to articles.
type BlogInput struct {
	Title        string
	Slug         string
	CustomTitle  string
	BlogImageID  *uint
	Content      json.RawMessage
	CategoryIDs  []uint
	AuthorIDs    []uint
	Subtitle     string
	IntroImageID *uint
}

// BlogService wraps blog listing and entry operations.
type BlogService struct {
	db    *gorm.DB
	tree  *PageTreeService
	pages PageTree
}

// NewBlogService creates a BlogService instance.
func NewBlogService(gdb *gorm.DB, tree *PageTreeService) *BlogService {
	return &BlogService{db: gdb, tree: tree, pages: tree}
}

// CreateListing adds a blog listing page below parentID.
func (s *BlogService) CreateListing(ctx context.Context, parentID *uint, input ListingInput) (*db.BlogListingPage, error) {
	customTitle, err := validateCustomTitle(input.CustomTitle)
	if err != nil {
		return nil, err
	}

	var listingID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		page, err := s.tree.WithDB(tx).Create(ctx, parentID, PageInput{
			Title:       input.Title,
			Slug:        input.Slug,
			ContentType: ContentTypeBlogListing,
		})
		if err != nil {
			return err
		}
		listing := db.BlogListingPage{PageID: page.ID, CustomTitle: customTitle}
		if err := tx.Omit("Page").Create(&listing).Error; err != nil {
			return fmt.Errorf("create blog listing: %w", err)
		}
		listingID = listing.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getListing(ctx, "id = ?", listingID)
}

// UpdateListing changes the titles of a listing page.
func (s *BlogService) UpdateListing(ctx context.Context, pageID uint, input ListingInput) (*db.BlogListingPage, error) {
	customTitle, err := validateCustomTitle(input.CustomTitle)
	if err != nil {
		return nil, err
	}
	listing, err := s.GetListing(ctx, pageID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if strings.TrimSpace(input.Title) != "" {
			if _, err := s.tree.WithDB(tx).Update(ctx, pageID, input.Title, input.Slug); err != nil {
				return err
			}
		}
		return tx.Model(&db.BlogListingPage{}).Where("id = ?", listing.ID).Update("custom_title", customTitle).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update blog listing: %w", err)
	}
	return s.GetListing(ctx, pageID)
}

// GetListing returns the listing stored for a tree node.
func (s *BlogService) GetListing(ctx context.Context, pageID uint) (*db.BlogListingPage, error) {
	return s.getListing(ctx, "page_id = ?", pageID)
}

func (s *BlogService) getListing(ctx context.Context, cond string, arg uint) (*db.BlogListingPage, error) {
	var listing db.BlogListingPage
	if err := s.db.WithContext(ctx).Preload("Page").Where(cond, arg).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogListingNotFound
		}
		return nil, fmt.Errorf("get blog listing: %w", err)
	}
	return &listing, nil
}

// CreateDetail adds a blog entry below a listing page.
func (s *BlogService) CreateDetail(ctx context.Context, parentID *uint, input BlogInput) (*db.BlogDetailPage, error) {
	return s.create(ctx, parentID, db.BlogVariantDetail, input)
}

// CreateArticle adds an article: a blog entry with subtitle and intro image.
func (s *BlogService) CreateArticle(ctx context.Context, parentID *uint, input BlogInput) (*db.BlogDetailPage, error) {
	return s.create(ctx, parentID, db.BlogVariantArticle, input)
}

func (s *BlogService) create(ctx context.Context, parentID *uint, variant string, input BlogInput) (*db.BlogDetailPage, error) {
	fields, err := s.validate(ctx, s.db, variant, input)
	if err != nil {
		return nil, err
	}

	var entryID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		page, err := s.tree.WithDB(tx).Create(ctx, parentID, PageInput{
			Title:       input.Title,
			Slug:        input.Slug,
			ContentType: ContentTypeBlogDetail,
		})
		if err != nil {
			return err
		}

		entry := db.BlogDetailPage{PageID: page.ID, Variant: variant}
		fields.apply(&entry)
		if err := tx.Omit(blogAssociations...).Create(&entry).Error; err != nil {
			return fmt.Errorf("create blog entry: %w", err)
		}
		entryID = entry.ID
		return fields.saveRelations(tx, &entry)
	})
	if err != nil {
		return nil, err
	}
	return s.getEntry(ctx, "blog_detail_pages.id = ?", entryID)
}

// Update applies updates to an existing blog entry. The variant never changes.
func (s *BlogService) Update(ctx context.Context, pageID uint, input BlogInput) (*db.BlogDetailPage, error) {
	entry, err := s.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	fields, err := s.validate(ctx, s.db, entry.Variant, input)
	if err != nil {
		return nil, err
	}
	// 已发布的文章同样需要 1 到 4 位作者
	if entry.Page.Live && len(fields.authorIDs) < MinBlogAuthors {
		return nil, fmt.Errorf("%w: a live entry cannot drop to %d", ErrAuthorCount, len(fields.authorIDs))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if strings.TrimSpace(input.Title) != "" {
			if _, err := s.tree.WithDB(tx).Update(ctx, pageID, input.Title, input.Slug); err != nil {
				return err
			}
		}
		fields.apply(entry)
		if err := tx.Omit(blogAssociations...).Save(entry).Error; err != nil {
			return fmt.Errorf("update blog entry: %w", err)
		}
		return fields.saveRelations(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, pageID)
}

// Get returns the blog entry stored for a tree node with every relation loaded.
func (s *BlogService) Get(ctx context.Context, pageID uint) (*db.BlogDetailPage, error) {
	return s.getEntry(ctx, "blog_detail_pages.page_id = ?", pageID)
}

// Publish makes a blog entry live once it has a custom title and 1 to 4 authors.
func (s *BlogService) Publish(ctx context.Context, pageID uint) (*db.BlogDetailPage, error) {
	entry, err := s.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(entry.CustomTitle) == "" {
		return nil, ErrInvalidPublishState
	}
	if n := len(entry.AuthorLinks); n < MinBlogAuthors || n > MaxBlogAuthors {
		return nil, fmt.Errorf("%w: got %d", ErrAuthorCount, n)
	}
	if _, err := s.tree.Publish(ctx, pageID); err != nil {
		return nil, err
	}
	return s.Get(ctx, pageID)
}

// Posts returns the live, public blog entries below listing, newest first.
func (s *BlogService) Posts(ctx context.Context, listing *db.Page) ([]db.BlogDetailPage, error) {
	pages, err := s.pages.DescendantsOf(ctx, listing, DescendantFilter{
		ContentType: ContentTypeBlogDetail,
		LiveOnly:    true,
		PublicOnly:  true,
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return []db.BlogDetailPage{}, nil
	}

	ids := make([]uint, 0, len(pages))
	for _, page := range pages {
		ids = append(ids, page.ID)
	}

	var entries []db.BlogDetailPage
	if err := s.preload(s.db.WithContext(ctx)).Where("blog_detail_pages.page_id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list blog entries: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Page, entries[j].Page
		switch {
		case a.FirstPublishedAt == nil && b.FirstPublishedAt == nil:
		case a.FirstPublishedAt == nil:
			return false
		case b.FirstPublishedAt == nil:
			return true
		case !a.FirstPublishedAt.Equal(*b.FirstPublishedAt):
			return a.FirstPublishedAt.After(*b.FirstPublishedAt)
		}
		return a.ID > b.ID
	})
	return entries, nil
}

// LatestPosts returns at most the newest entry. No entries is not an error.
func (s *BlogService) LatestPosts(ctx context.Context, listing *db.Page) ([]db.BlogDetailPage, error) {
	posts, err := s.Posts(ctx, listing)
	if err != nil {
		return nil, err
	}
	if len(posts) > 1 {
		posts = posts[:1]
	}
	return posts, nil
}

// PostsByCategory narrows Posts to one category. An unknown slug yields a nil
// category and every post.
func (s *BlogService) PostsByCategory(ctx context.Context, listing *db.Page, categorySlug string) ([]db.BlogDetailPage, *db.BlogCategory, error) {
	posts, err := s.Posts(ctx, listing)
	if err != nil {
		return nil, nil, err
	}

	category, err := NewCategoryService(s.db.WithContext(ctx)).GetBySlug(categorySlug)
	if errors.Is(err, ErrCategoryNotFound) {
		return posts, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	filtered := make([]db.BlogDetailPage, 0, len(posts))
	for _, post := range posts {
		if post.HasCategory(category.ID) {
			filtered = append(filtered, post)
		}
	}
	return filtered, category, nil
}

func (s *BlogService) getEntry(ctx context.Context, cond string, arg uint) (*db.BlogDetailPage, error) {
	var entry db.BlogDetailPage
	if err := s.preload(s.db.WithContext(ctx)).Where(cond, arg).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogPostNotFound
		}
		return nil, fmt.Errorf("get blog entry: %w", err)
	}
	return &entry, nil
}

func (s *BlogService) preload(gdb *gorm.DB) *gorm.DB {
	return gdb.
		Preload("Page").
		Preload("BlogImage").
		Preload("IntroImage").
		Preload("Categories", func(tx *gorm.DB) *gorm.DB { return tx.Order("blog_categories.name asc") }).
		Preload("AuthorLinks", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc").Order("id asc") }).
		Preload("AuthorLinks.BlogAuthor").
		Preload("AuthorLinks.BlogAuthor.Image")
}

var blogAssociations = []string{"Page", "BlogImage", "IntroImage", "Categories", "AuthorLinks"}

type blogFields struct {
	customTitle  string
	blogImageID  *uint
	content      datatypes.JSON
	subtitle     string
	introImageID *uint
	categories   []db.BlogCategory
	authorIDs    []uint
}

func (f blogFields) apply(entry *db.BlogDetailPage) {
	entry.CustomTitle = f.customTitle
	entry.BlogImageID = f.blogImageID
	entry.Content = f.content
	entry.Subtitle = f.subtitle
	entry.IntroImageID = f.introImageID
}

// saveRelations rewrites categories and author links; author order follows input order.
func (f blogFields) saveRelations(tx *gorm.DB, entry *db.BlogDetailPage) error {
	if err := tx.Model(entry).Association("Categories").Replace(f.categories); err != nil {
		return fmt.Errorf("save blog categories: %w", err)
	}
	if err := tx.Where("blog_detail_page_id = ?", entry.ID).Delete(&db.BlogAuthorLink{}).Error; err != nil {
		return fmt.Errorf("clear blog authors: %w", err)
	}
	if len(f.authorIDs) == 0 {
		return nil
	}
	links := make([]db.BlogAuthorLink, 0, len(f.authorIDs))
	for index, authorID := range f.authorIDs {
		links = append(links, db.BlogAuthorLink{
			BlogDetailPageID: entry.ID,
			BlogAuthorID:     authorID,
			SortOrder:        index,
		})
	}
	if err := tx.Omit("BlogAuthor").Create(&links).Error; err != nil {
		return fmt.Errorf("save blog authors: %w", err)
	}
	return nil
}

func (s *BlogService) validate(ctx context.Context, gdb *gorm.DB, variant string, input BlogInput) (blogFields, error) {
	var fields blogFields

	customTitle, err := validateCustomTitle(input.CustomTitle)
	if err != nil {
		return fields, err
	}
	fields.customTitle = customTitle
	fields.blogImageID = input.BlogImageID

	if variant == db.BlogVariantArticle {
		fields.subtitle = strings.TrimSpace(input.Subtitle)
		if utf8.RuneCountInString(fields.subtitle) > subtitleMaxLength {
			return fields, fmt.Errorf("%w: subtitle must be at most %d characters", ErrBlogInvalidInput, subtitleMaxLength)
		}
		fields.introImageID = input.IntroImageID
	}

	col, err := blocks.ParseColumn(input.Content)
	if err != nil {
		return fields, err
	}
	col, err = col.Prepare(BlogDetailColumnTypes...)
	if err != nil {
		return fields, err
	}
	if fields.content, err = col.JSON(); err != nil {
		return fields, fmt.Errorf("encode blog content: %w", err)
	}
	imageIDs := append(derefIDs(fields.blogImageID, fields.introImageID), col.ImageIDs()...)
	if err := ensureImages(ctx, gdb, imageIDs...); err != nil {
		return fields, err
	}

	authorIDs := uniqueIDs(input.AuthorIDs)
	if len(authorIDs) > MaxBlogAuthors {
		return fields, fmt.Errorf("%w: got %d", ErrAuthorCount, len(authorIDs))
	}
	if len(authorIDs) > 0 {
		var count int64
		if err := gdb.WithContext(ctx).Model(&db.BlogAuthor{}).Where("id IN ?", authorIDs).Count(&count).Error; err != nil {
			return fields, fmt.Errorf("check authors: %w", err)
		}
		if int(count) != len(authorIDs) {
			return fields, ErrAuthorNotFound
		}
	}
	fields.authorIDs = authorIDs

	categoryIDs := uniqueIDs(input.CategoryIDs)
	fields.categories = []db.BlogCategory{}
	if len(categoryIDs) > 0 {
		if err := gdb.WithContext(ctx).Where("id IN ?", categoryIDs).Find(&fields.categories).Error; err != nil {
			return fields, fmt.Errorf("load categories: %w", err)
		}
		if len(fields.categories) != len(categoryIDs) {
			return fields, ErrCategoryNotFound
		}
	}

	return fields, nil
}

func validateCustomTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("%w: custom title is required", ErrBlogInvalidInput)
	}
	if utf8.RuneCountInString(title) > customTitleMaxLength {
		return "", fmt.Errorf("%w: custom title must be at most %d characters", ErrBlogInvalidInput, customTitleMaxLength)
	}
	return title, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
