package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/service"
)

const imageContentType = "images.Image"

type pageMeta struct {
	Type             string     `json:"type"`
	DetailURL        string     `json:"detail_url"`
	HTMLURL          string     `json:"html_url"`
	Slug             string     `json:"slug"`
	FirstPublishedAt *time.Time `json:"first_published_at"`
	Parent           *pageRef   `json:"parent"`
}

type pageRef struct {
	ID    uint    `json:"id"`
	Meta  refMeta `json:"meta"`
	Title string  `json:"title"`
}

type refMeta struct {
	Type        string `json:"type"`
	DetailURL   string `json:"detail_url"`
	HTMLURL     string `json:"html_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// ListContentPages serves the live public pages of the current site.
// ?type= narrows by content type.
func (a *API) ListContentPages(c *gin.Context) {
	site, err := a.currentSite(c)
	if err != nil {
		respondServiceError(c, err, "获取站点失败")
		return
	}

	ctx := c.Request.Context()
	pages, err := a.servablePages(ctx, site.RootPage, strings.TrimSpace(c.Query("type")))
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}

	items := make([]gin.H, 0, len(pages))
	for i := range pages {
		items = append(items, gin.H{
			"id":    pages[i].ID,
			"meta":  a.pageMeta(ctx, &pages[i]),
			"title": pages[i].Title,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"meta":  gin.H{"total_count": len(items)},
		"items": items,
	})
}

// GetContentPage serves one live public page. Home pages expose their banner
// fields, other types only id, meta and title.
func (a *API) GetContentPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	page, err := a.tree.Get(ctx, id)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	public, err := a.tree.IsPublic(ctx, page)
	if err != nil {
		respondServiceError(c, err, "获取页面失败")
		return
	}
	if !a.tree.IsLive(page) || !public {
		respondError(c, http.StatusNotFound, "No Page matches the given query.")
		return
	}

	payload := gin.H{
		"id":    page.ID,
		"meta":  a.pageMeta(ctx, page),
		"title": page.Title,
	}

	if page.ContentType == service.ContentTypeHome {
		home, err := a.home.GetByPage(ctx, page.ID)
		if err != nil {
			respondServiceError(c, err, "获取首页失败")
			return
		}
		payload["banner_title"] = home.BannerTitle
		payload["banner_subtitle"] = home.BannerSubtitle
		payload["banner_image"] = a.imageRef(home.BannerImage)
		payload["banner_cta"] = a.pageRef(home.BannerCTA)
	}

	c.JSON(http.StatusOK, payload)
}

func (a *API) servablePages(ctx context.Context, root *db.Page, contentType string) ([]db.Page, error) {
	if root == nil {
		return nil, service.ErrSiteNotFound
	}
	pages, err := a.tree.DescendantsOf(ctx, root, service.DescendantFilter{
		ContentType: contentType,
		LiveOnly:    true,
		PublicOnly:  true,
	})
	if err != nil {
		return nil, err
	}

	if root.Live && (contentType == "" || contentType == root.ContentType) {
		public, err := a.tree.IsPublic(ctx, root)
		if err != nil {
			return nil, err
		}
		if public {
			pages = append([]db.Page{*root}, pages...)
		}
	}
	return pages, nil
}

func (a *API) pageMeta(ctx context.Context, page *db.Page) pageMeta {
	meta := pageMeta{
		Type:             page.ContentType,
		DetailURL:        a.absoluteURL(fmt.Sprintf("/api/v2/pages/%d", page.ID)),
		HTMLURL:          a.absoluteURL(page.URLPath),
		Slug:             page.Slug,
		FirstPublishedAt: page.FirstPublishedAt,
	}
	if page.ParentID != nil {
		if parent, err := a.tree.Get(ctx, *page.ParentID); err == nil {
			meta.Parent = a.pageRef(parent)
		}
	}
	return meta
}

func (a *API) pageRef(page *db.Page) *pageRef {
	if page == nil || page.ID == 0 {
		return nil
	}
	return &pageRef{
		ID: page.ID,
		Meta: refMeta{
			Type:      page.ContentType,
			DetailURL: a.absoluteURL(fmt.Sprintf("/api/v2/pages/%d", page.ID)),
			HTMLURL:   a.absoluteURL(page.URLPath),
		},
		Title: page.Title,
	}
}

func (a *API) imageRef(image *db.Image) *pageRef {
	if image == nil || image.ID == 0 {
		return nil
	}
	return &pageRef{
		ID: image.ID,
		Meta: refMeta{
			Type:        imageContentType,
			DetailURL:   a.absoluteURL(fmt.Sprintf("/api/v2/images/%d", image.ID)),
			DownloadURL: image.URL,
		},
		Title: image.Title,
	}
}

// absoluteURL prefixes p with the configured base URL when one is set.
func (a *API) absoluteURL(p string) string {
	if a.baseURL == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return a.baseURL + "/" + strings.TrimLeft(p, "/")
}

// GetContentImage serves image metadata referenced from page payloads.
func (a *API) GetContentImage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	image, err := a.images.Get(id)
	if err != nil {
		respondServiceError(c, err, "获取图片失败")
		return
	}

	ref := a.imageRef(image)
	c.JSON(http.StatusOK, gin.H{
		"id":     ref.ID,
		"meta":   ref.Meta,
		"title":  ref.Title,
		"width":  image.Width,
		"height": image.Height,
	})
}
