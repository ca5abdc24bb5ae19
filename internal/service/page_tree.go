package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/trainclimb/internal/db"
	"gorm.io/gorm"
)

var (
	ErrPageNotFound     = errors.New("page not found")
	ErrPageTitleMissing = errors.New("page title is required")
	ErrPageSlugInvalid  = errors.New("page slug is invalid")
	ErrPageSlugInUse    = errors.New("slug is already used by a sibling page")
	ErrPageTypeUnknown  = errors.New("unknown page type")
	ErrPageTypeLimit    = errors.New("page type limit reached")
	ErrPageParentType   = errors.New("page type is not allowed below this parent")
	ErrPageTreeFull     = errors.New("parent page has no free child slots")
)

// maxChildren is the number of children one level of Page.Path can address.
const maxChildren = 36 * 36 * 36 * 36

// PageTree is the narrow query surface page types use to read the content tree.
type PageTree interface {
	DescendantsOf(ctx context.Context, node *db.Page, filter DescendantFilter) ([]db.Page, error)
	IsLive(node *db.Page) bool
	IsPublic(ctx context.Context, node *db.Page) (bool, error)
}

// DescendantFilter narrows DescendantsOf.
type DescendantFilter struct {
	ContentType string
	LiveOnly    bool
	PublicOnly  bool
}

// PageInput carries the generic fields of a new tree node.
type PageInput struct {
	Title       string
	Slug        string
	ContentType string
}

// PageTreeService stores the content tree as a materialised path.
type PageTreeService struct {
	db  *gorm.DB
	now func() time.Time
}

var _ PageTree = (*PageTreeService)(nil)

// NewPageTreeService returns a tree bound to gdb.
func NewPageTreeService(gdb *gorm.DB) *PageTreeService {
	return &PageTreeService{db: gdb, now: time.Now}
}

// WithDB returns a copy that runs on tx, typically inside a transaction.
func (s *PageTreeService) WithDB(tx *gorm.DB) *PageTreeService {
	return &PageTreeService{db: tx, now: s.now}
}

// Create adds a page below parentID, or a new root when parentID is nil.
func (s *PageTreeService) Create(ctx context.Context, parentID *uint, input PageInput) (*db.Page, error) {
	pageType, ok := LookupPageType(input.ContentType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPageTypeUnknown, input.ContentType)
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrPageTitleMissing
	}

	pageSlug := normalizeSlug(input.Slug, title)
	if pageSlug == "" {
		return nil, ErrPageSlugInvalid
	}

	gdb := s.db.WithContext(ctx)

	if pageType.MaxCount > 0 {
		var count int64
		if err := gdb.Model(&db.Page{}).Where("content_type = ?", pageType.ContentType).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count pages: %w", err)
		}
		if count >= int64(pageType.MaxCount) {
			return nil, fmt.Errorf("%w: %s allows %d", ErrPageTypeLimit, pageType.ContentType, pageType.MaxCount)
		}
	}

	var parent *db.Page
	if parentID != nil {
		loaded, err := s.Get(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		parent = loaded
	}
	if !pageType.AllowsParent(parentContentType(parent)) {
		return nil, fmt.Errorf("%w: %s", ErrPageParentType, pageType.ContentType)
	}

	if err := s.ensureSlugFree(ctx, parentID, pageSlug, 0); err != nil {
		return nil, err
	}

	path, err := s.nextChildPath(ctx, parent)
	if err != nil {
		return nil, err
	}

	page := db.Page{
		ParentID:    parentID,
		Path:        path,
		Depth:       len(path) / db.PathStep,
		Title:       title,
		Slug:        pageSlug,
		ContentType: pageType.ContentType,
		URLPath:     "/",
	}
	if parent != nil {
		page.URLPath = parent.URLPath + pageSlug + "/"
	}

	if err := gdb.Create(&page).Error; err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &page, nil
}

// Get fetches a page by id.
func (s *PageTreeService) Get(ctx context.Context, id uint) (*db.Page, error) {
	var page db.Page
	if err := s.db.WithContext(ctx).First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return &page, nil
}

// GetMany fetches pages by id, keyed by id. Missing ids are skipped.
func (s *PageTreeService) GetMany(ctx context.Context, ids []uint) (map[uint]db.Page, error) {
	out := make(map[uint]db.Page, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var pages []db.Page
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	for _, page := range pages {
		out[page.ID] = page
	}
	return out, nil
}

// Roots lists the top level pages in tree order.
func (s *PageTreeService) Roots(ctx context.Context) ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.WithContext(ctx).Where("parent_id IS NULL").Order("path asc").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list root pages: %w", err)
	}
	return pages, nil
}

// Children lists the direct children of a page in tree order.
func (s *PageTreeService) Children(ctx context.Context, id uint) ([]db.Page, error) {
	var pages []db.Page
	if err := s.db.WithContext(ctx).Where("parent_id = ?", id).Order("path asc").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list child pages: %w", err)
	}
	return pages, nil
}

// Ancestors returns the chain from the root down to, but excluding, node.
func (s *PageTreeService) Ancestors(ctx context.Context, node *db.Page) ([]db.Page, error) {
	prefixes := ancestorPaths(node.Path)
	if len(prefixes) == 0 {
		return []db.Page{}, nil
	}
	var pages []db.Page
	if err := s.db.WithContext(ctx).Where("path IN ?", prefixes).Order("path asc").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	return pages, nil
}

// DescendantsOf returns the pages below node in tree order.
func (s *PageTreeService) DescendantsOf(ctx context.Context, node *db.Page, filter DescendantFilter) ([]db.Page, error) {
	if node == nil {
		return []db.Page{}, nil
	}

	query := s.db.WithContext(ctx).Model(&db.Page{}).
		Where("pages.path LIKE ? AND pages.depth > ?", node.Path+"%", node.Depth)

	if filter.ContentType != "" {
		query = query.Where("pages.content_type = ?", filter.ContentType)
	}
	if filter.LiveOnly {
		query = query.Where("pages.live = ?", true)
	}
	if filter.PublicOnly {
		restricted := s.db.Table("pages AS r").
			Select("1").
			Where("r.view_restricted = ? AND r.deleted_at IS NULL", true).
			Where("pages.path LIKE r.path || '%'")
		query = query.Where("NOT EXISTS (?)", restricted)
	}

	var pages []db.Page
	if err := query.Order("pages.path asc").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	return pages, nil
}

// IsLive reports whether the page is published.
func (s *PageTreeService) IsLive(node *db.Page) bool {
	return node != nil && node.Live
}

// IsPublic reports whether neither the page nor any ancestor is view restricted.
func (s *PageTreeService) IsPublic(ctx context.Context, node *db.Page) (bool, error) {
	if node == nil {
		return false, nil
	}
	if node.ViewRestricted {
		return false, nil
	}
	prefixes := ancestorPaths(node.Path)
	if len(prefixes) == 0 {
		return true, nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Page{}).
		Where("path IN ? AND view_restricted = ?", prefixes, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check page restrictions: %w", err)
	}
	return count == 0, nil
}

// Publish makes a page live, stamping the first and last publish times.
func (s *PageTreeService) Publish(ctx context.Context, id uint) (*db.Page, error) {
	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	page.Live = true
	page.LastPublishedAt = &now
	if page.FirstPublishedAt == nil {
		page.FirstPublishedAt = &now
	}
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("publish page: %w", err)
	}
	return page, nil
}

// Unpublish takes a page offline; its publish history is kept.
func (s *PageTreeService) Unpublish(ctx context.Context, id uint) (*db.Page, error) {
	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	page.Live = false
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("unpublish page: %w", err)
	}
	return page, nil
}

// SetRestricted toggles the view restriction of a page and, implicitly, its subtree.
func (s *PageTreeService) SetRestricted(ctx context.Context, id uint, restricted bool) (*db.Page, error) {
	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	page.ViewRestricted = restricted
	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, fmt.Errorf("restrict page: %w", err)
	}
	return page, nil
}

// Update changes the title and slug of a page, rewriting descendant URLs
// when the slug moves.
func (s *PageTreeService) Update(ctx context.Context, id uint, title, pageSlug string) (*db.Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrPageTitleMissing
	}

	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newSlug := normalizeSlug(pageSlug, title)
	if strings.TrimSpace(pageSlug) == "" {
		newSlug = page.Slug
	}
	if newSlug == "" {
		return nil, ErrPageSlugInvalid
	}

	page.Title = title
	if newSlug == page.Slug {
		if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
			return nil, fmt.Errorf("update page: %w", err)
		}
		return page, nil
	}

	if err := s.ensureSlugFree(ctx, page.ParentID, newSlug, page.ID); err != nil {
		return nil, err
	}

	oldURL := page.URLPath
	page.Slug = newSlug
	if !page.IsRoot() {
		page.URLPath = parentURL(oldURL) + newSlug + "/"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(page).Error; err != nil {
			return err
		}
		if page.IsRoot() {
			return nil
		}

		var descendants []db.Page
		if err := tx.Where("path LIKE ? AND depth > ?", page.Path+"%", page.Depth).Find(&descendants).Error; err != nil {
			return err
		}
		for _, child := range descendants {
			rewritten := page.URLPath + strings.TrimPrefix(child.URLPath, oldURL)
			if err := tx.Model(&db.Page{}).Where("id = ?", child.ID).Update("url_path", rewritten).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return page, nil
}

// Delete removes a page with its whole subtree, the type specific rows and
// references other content holds to them.
func (s *PageTreeService) Delete(ctx context.Context, id uint) error {
	page, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subtree []db.Page
		if err := tx.Where("path LIKE ?", page.Path+"%").Find(&subtree).Error; err != nil {
			return err
		}

		byType := make(map[string][]uint)
		ids := make([]uint, 0, len(subtree))
		for _, node := range subtree {
			ids = append(ids, node.ID)
			byType[node.ContentType] = append(byType[node.ContentType], node.ID)
		}

		for contentType, pageIDs := range byType {
			if pt, ok := LookupPageType(contentType); ok && pt.cleanup != nil {
				if err := pt.cleanup(tx, pageIDs); err != nil {
					return fmt.Errorf("clean up %s: %w", contentType, err)
				}
			}
		}

		if err := tx.Where("link_page_id IN ?", ids).Delete(&db.MenuItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.HomePage{}).Where("banner_cta_id IN ?", ids).Update("banner_cta_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("root_page_id IN ?", ids).Delete(&db.Site{}).Error; err != nil {
			return err
		}

		return tx.Unscoped().Where("id IN ?", ids).Delete(&db.Page{}).Error
	})
}

// Route resolves a request path below root to the deepest matching page
// and returns the unmatched remainder. Empty segments are skipped while
// matching but kept in the remainder, so "category//" stays as written.
func (s *PageTreeService) Route(ctx context.Context, root *db.Page, requestPath string) (*db.Page, string, error) {
	raw := requestPath
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}

	// candidate URL -> offset in raw where its remainder starts
	offsets := map[string]int{"/": 1}
	candidates := []string{"/"}
	prefix := "/"
	for pos := 1; pos < len(raw); {
		end := pos + strings.IndexByte(raw[pos:], '/')
		segment := raw[pos:end]
		pos = end + 1
		if segment == "" {
			continue
		}
		prefix += segment + "/"
		offsets[prefix] = pos
		candidates = append(candidates, prefix)
	}

	var pages []db.Page
	if err := s.db.WithContext(ctx).
		Where("path LIKE ? AND url_path IN ?", root.Path+"%", candidates).
		Find(&pages).Error; err != nil {
		return nil, "", fmt.Errorf("route page: %w", err)
	}

	var best *db.Page
	for i := range pages {
		if best == nil || len(pages[i].URLPath) > len(best.URLPath) {
			best = &pages[i]
		}
	}
	if best == nil {
		return nil, "", ErrPageNotFound
	}
	return best, raw[offsets[best.URLPath]:], nil
}

func (s *PageTreeService) ensureSlugFree(ctx context.Context, parentID *uint, pageSlug string, exceptID uint) error {
	query := s.db.WithContext(ctx).Model(&db.Page{}).Where("slug = ?", pageSlug)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if count > 0 {
		return ErrPageSlugInUse
	}
	return nil
}

func (s *PageTreeService) nextChildPath(ctx context.Context, parent *db.Page) (string, error) {
	prefix := ""
	depth := 1
	if parent != nil {
		prefix = parent.Path
		depth = parent.Depth + 1
	}

	var last string
	if err := s.db.WithContext(ctx).Unscoped().Model(&db.Page{}).
		Where("depth = ? AND path LIKE ?", depth, prefix+"%").
		Select("COALESCE(MAX(path), '')").
		Scan(&last).Error; err != nil {
		return "", fmt.Errorf("next child path: %w", err)
	}

	next := int64(1)
	if last != "" {
		current, err := strconv.ParseInt(last[len(last)-db.PathStep:], 36, 64)
		if err != nil {
			return "", fmt.Errorf("corrupt page path %q: %w", last, err)
		}
		next = current + 1
	}
	if next >= maxChildren {
		return "", ErrPageTreeFull
	}
	return prefix + encodePathStep(next), nil
}

func encodePathStep(n int64) string {
	step := strings.ToUpper(strconv.FormatInt(n, 36))
	return strings.Repeat("0", db.PathStep-len(step)) + step
}

func ancestorPaths(path string) []string {
	var prefixes []string
	for end := db.PathStep; end < len(path); end += db.PathStep {
		prefixes = append(prefixes, path[:end])
	}
	return prefixes
}

func parentContentType(parent *db.Page) string {
	if parent == nil {
		return ""
	}
	return parent.ContentType
}

func parentURL(urlPath string) string {
	trimmed := strings.TrimSuffix(urlPath, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "/"
	}
	return trimmed[:idx+1]
}

func normalizeSlug(raw, fallback string) string {
	source := strings.TrimSpace(raw)
	if source == "" {
		source = fallback
	}
	return slug.Make(source)
}
