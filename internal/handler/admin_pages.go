package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/panels"
	"github.com/trainclimb/internal/service"
)

var errPanelType = errors.New("unsupported page type")

type carouselRequest struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	ImageID *uint  `json:"carousel_image_id"`
}

// pageRequest is the union of every page form; Type picks the fields that apply.
type pageRequest struct {
	ParentID       *uint             `json:"parent_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Slug           string            `json:"slug"`
	CustomTitle    string            `json:"custom_title"`
	BannerTitle    string            `json:"banner_title"`
	BannerSubtitle string            `json:"banner_subtitle"`
	BannerImageID  *uint             `json:"banner_image_id"`
	BannerCTAID    *uint             `json:"banner_cta_id"`
	Carousel       []carouselRequest `json:"carousel_images"`
	Content        json.RawMessage   `json:"content"`
	BlogImageID    *uint             `json:"blog_image_id"`
	CategoryIDs    []uint            `json:"category_ids"`
	AuthorIDs      []uint            `json:"author_ids"`
	Subtitle       string            `json:"subtitle"`
	IntroImageID   *uint             `json:"intro_image_id"`
}

func (r pageRequest) homeInput() service.HomeInput {
	carousel := make([]service.CarouselInput, 0, len(r.Carousel))
	for _, item := range r.Carousel {
		carousel = append(carousel, service.CarouselInput{Title: item.Title, Text: item.Text, ImageID: item.ImageID})
	}
	return service.HomeInput{
		Title:          r.Title,
		Slug:           r.Slug,
		BannerTitle:    r.BannerTitle,
		BannerSubtitle: r.BannerSubtitle,
		BannerImageID:  r.BannerImageID,
		BannerCTAID:    r.BannerCTAID,
		Content:        r.Content,
		Carousel:       carousel,
	}
}

func (r pageRequest) listingInput() service.ListingInput {
	return service.ListingInput{Title: r.Title, Slug: r.Slug, CustomTitle: r.CustomTitle}
}

func (r pageRequest) blogInput() service.BlogInput {
	return service.BlogInput{
		Title:        r.Title,
		Slug:         r.Slug,
		CustomTitle:  r.CustomTitle,
		BlogImageID:  r.BlogImageID,
		Content:      r.Content,
		CategoryIDs:  r.CategoryIDs,
		AuthorIDs:    r.AuthorIDs,
		Subtitle:     r.Subtitle,
		IntroImageID: r.IntroImageID,
	}
}

// checkInlines validates repeatable fields against the panel of panelType.
func (r pageRequest) checkInlines(panelType string) error {
	switch panelType {
	case panels.TypeHomePage:
		return panels.CheckInlineCount(panelType, "carousel_images", len(r.Carousel))
	case panels.TypeBlogDetailPage, panels.TypeArticleBlogPage:
		return panels.CheckInlineCount(panelType, "authors", len(distinctIDs(r.AuthorIDs)))
	}
	return nil
}

// distinctIDs drops zero and repeated ids, keeping the first occurrence.
func distinctIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type pagePayload struct {
	Page     *db.Page            `json:"page"`
	Type     string              `json:"type"`
	Home     *db.HomePage        `json:"home,omitempty"`
	Listing  *db.BlogListingPage `json:"listing,omitempty"`
	Entry    *db.BlogDetailPage  `json:"entry,omitempty"`
	Children int                 `json:"children"`
}

// ListPageTypes returns the declared page types.
func (a *API) ListPageTypes(c *gin.Context) {
	types := service.PageTypes()
	items := make([]gin.H, 0, len(types))
	for _, pt := range types {
		items = append(items, gin.H{
			"content_type": pt.ContentType,
			"label":        pt.Label,
			"max_count":    pt.MaxCount,
			"routable":     pt.Routable,
			"parent_types": pt.ParentTypes,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListPages returns the roots of the tree, or the children of ?parent=.
func (a *API) ListPages(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		pages []db.Page
		err   error
	)
	if raw := c.Query("parent"); raw != "" {
		parentID, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			respondError(c, http.StatusBadRequest, "invalid parent")
			return
		}
		pages, err = a.tree.Children(ctx, uint(parentID))
	} else {
		pages, err = a.tree.Roots(ctx)
	}
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": pages})
}

// GetPage returns a tree node with its type specific fields.
func (a *API) GetPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := a.loadPage(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusOK, payload)
}

// CreatePage adds a page of the requested type below parent_id.
func (a *API) CreatePage(c *gin.Context) {
	var req pageRequest
	if !bindJSON(c, &req, "无效的页面数据") {
		return
	}
	if err := req.checkInlines(req.Type); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	var (
		pageID uint
		err    error
	)
	switch req.Type {
	case panels.TypeHomePage:
		var home *db.HomePage
		if home, err = a.home.Create(ctx, req.ParentID, req.homeInput()); err == nil {
			pageID = home.PageID
		}
	case panels.TypeBlogListingPage:
		var listing *db.BlogListingPage
		if listing, err = a.blog.CreateListing(ctx, req.ParentID, req.listingInput()); err == nil {
			pageID = listing.PageID
		}
	case panels.TypeBlogDetailPage:
		var entry *db.BlogDetailPage
		if entry, err = a.blog.CreateDetail(ctx, req.ParentID, req.blogInput()); err == nil {
			pageID = entry.PageID
		}
	case panels.TypeArticleBlogPage:
		var entry *db.BlogDetailPage
		if entry, err = a.blog.CreateArticle(ctx, req.ParentID, req.blogInput()); err == nil {
			pageID = entry.PageID
		}
	default:
		respondError(c, http.StatusBadRequest, fmt.Sprintf("%v: %q", errPanelType, req.Type))
		return
	}
	if err != nil {
		respondServiceError(c, err, "创建页面失败")
		return
	}

	payload, err := a.loadPage(ctx, pageID)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusCreated, payload)
}

// UpdatePage saves the type specific fields of an existing page.
func (a *API) UpdatePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req pageRequest
	if !bindJSON(c, &req, "无效的页面数据") {
		return
	}

	ctx := c.Request.Context()
	current, err := a.loadPage(ctx, id)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	if err := req.checkInlines(current.Type); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	switch current.Type {
	case panels.TypeHomePage:
		_, err = a.home.Update(ctx, id, req.homeInput())
	case panels.TypeBlogListingPage:
		_, err = a.blog.UpdateListing(ctx, id, req.listingInput())
	case panels.TypeBlogDetailPage, panels.TypeArticleBlogPage:
		_, err = a.blog.Update(ctx, id, req.blogInput())
	default:
		_, err = a.tree.Update(ctx, id, req.Title, req.Slug)
	}
	if err != nil {
		respondServiceError(c, err, "更新页面失败")
		return
	}

	payload, err := a.loadPage(ctx, id)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusOK, payload)
}

// PublishPage makes a page live. Blog entries are checked for completeness first.
func (a *API) PublishPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	page, err := a.tree.Get(ctx, id)
	if err != nil {
		respondServiceError(c, err, "发布失败")
		return
	}
	if page.ContentType == service.ContentTypeBlogDetail {
		_, err = a.blog.Publish(ctx, id)
	} else {
		_, err = a.tree.Publish(ctx, id)
	}
	if err != nil {
		respondServiceError(c, err, "发布失败")
		return
	}

	payload, err := a.loadPage(ctx, id)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusOK, payload)
}

// UnpublishPage takes a page offline.
func (a *API) UnpublishPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	page, err := a.tree.Unpublish(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "取消发布失败")
		return
	}
	c.JSON(http.StatusOK, page)
}

type privacyRequest struct {
	Restricted bool `json:"restricted"`
}

// SetPagePrivacy toggles the view restriction of a page and its subtree.
func (a *API) SetPagePrivacy(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req privacyRequest
	if !bindJSON(c, &req, "无效的隐私设置") {
		return
	}
	page, err := a.tree.SetRestricted(c.Request.Context(), id, req.Restricted)
	if err != nil {
		respondServiceError(c, err, "更新隐私设置失败")
		return
	}
	c.JSON(http.StatusOK, page)
}

// DeletePage removes a page and its subtree.
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.tree.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "删除页面失败")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) loadPage(ctx context.Context, id uint) (*pagePayload, error) {
	page, err := a.tree.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := a.tree.Children(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := &pagePayload{Page: page, Type: page.ContentType, Children: len(children)}
	switch page.ContentType {
	case service.ContentTypeHome:
		payload.Home, err = a.home.GetByPage(ctx, id)
	case service.ContentTypeBlogListing:
		payload.Listing, err = a.blog.GetListing(ctx, id)
	case service.ContentTypeBlogDetail:
		payload.Entry, err = a.blog.Get(ctx, id)
		if err == nil && payload.Entry.IsArticle() {
			payload.Type = panels.TypeArticleBlogPage
		}
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
