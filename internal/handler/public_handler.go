package handler

import (
	"errors"
	"html/template"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/internal/service"
	"go.uber.org/zap"
)

// Sub-route names of the blog listing page.
const (
	RouteLatestPosts  = "latest_posts"
	RouteCategoryView = "category_view"
	RouteSubscribe    = "subscribe"
)

type listingRoute struct {
	name    string
	pattern *regexp.Regexp
}

// Patterns match the path remaining below the listing URL.
var listingRoutes = []listingRoute{
	{name: RouteLatestPosts, pattern: regexp.MustCompile(`^latest/$`)},
	{name: RouteCategoryView, pattern: regexp.MustCompile(`^category/(?P<cat_slug>[-\w]*)/$`)},
	{name: RouteSubscribe, pattern: regexp.MustCompile(`^subscribe/$`)},
}

// matchListingRoute returns the sub-route matching remainder and its named groups.
func matchListingRoute(remainder string) (string, map[string]string, bool) {
	for _, route := range listingRoutes {
		match := route.pattern.FindStringSubmatch(remainder)
		if match == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range route.pattern.SubexpNames() {
			if i > 0 && name != "" {
				params[name] = match[i]
			}
		}
		return route.name, params, true
	}
	return "", nil, false
}

// postView is a blog entry as listing templates show it.
type postView struct {
	ID          uint
	Title       string
	URL         string
	ImageURL    string
	Subtitle    string
	IsArticle   bool
	PublishedAt *time.Time
	Authors     []db.BlogAuthor
	Categories  []db.BlogCategory
}

func newPostView(entry db.BlogDetailPage) postView {
	title := strings.TrimSpace(entry.CustomTitle)
	if title == "" {
		title = entry.Page.Title
	}
	return postView{
		ID:          entry.Page.ID,
		Title:       title,
		URL:         entry.Page.URLPath,
		ImageURL:    imageURL(entry.BlogImage),
		Subtitle:    entry.Subtitle,
		IsArticle:   entry.IsArticle(),
		PublishedAt: entry.Page.FirstPublishedAt,
		Authors:     entry.Authors(),
		Categories:  entry.Categories,
	}
}

func newPostViews(entries []db.BlogDetailPage) []postView {
	views := make([]postView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newPostView(entry))
	}
	return views
}

type slideView struct {
	Title    string
	Text     template.HTML
	ImageURL string
}

// ServePage resolves any unmatched GET request against the page tree.
func (a *API) ServePage(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		a.renderNotFound(c)
		return
	}

	requestPath := c.Request.URL.Path
	if !strings.HasSuffix(requestPath, "/") && path.Ext(requestPath) == "" {
		target := requestPath + "/"
		if c.Request.URL.RawQuery != "" {
			target += "?" + c.Request.URL.RawQuery
		}
		c.Redirect(http.StatusMovedPermanently, target)
		return
	}

	site, err := a.currentSite(c)
	if err != nil {
		if errors.Is(err, service.ErrSiteNotFound) {
			a.renderNotFound(c)
			return
		}
		a.renderError(c, err)
		return
	}

	ctx := c.Request.Context()
	page, remainder, err := a.tree.Route(ctx, site.RootPage, requestPath)
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			a.renderNotFound(c)
			return
		}
		a.renderError(c, err)
		return
	}

	if !a.tree.IsLive(page) {
		a.renderNotFound(c)
		return
	}
	public, err := a.tree.IsPublic(ctx, page)
	if err != nil {
		a.renderError(c, err)
		return
	}
	if !public {
		a.renderNotFound(c)
		return
	}

	pageType, ok := service.LookupPageType(page.ContentType)
	if !ok {
		a.renderNotFound(c)
		return
	}
	if remainder != "" && !pageType.Routable {
		a.renderNotFound(c)
		return
	}

	switch page.ContentType {
	case service.ContentTypeHome:
		a.serveHome(c, page)
	case service.ContentTypeBlogListing:
		a.serveListing(c, page, remainder)
	case service.ContentTypeBlogDetail:
		a.serveEntry(c, page)
	default:
		a.renderNotFound(c)
	}
}

func (a *API) serveHome(c *gin.Context, page *db.Page) {
	ctx := c.Request.Context()
	home, err := a.home.GetByPage(ctx, page.ID)
	if err != nil {
		a.renderServiceError(c, err)
		return
	}
	resolver := a.resolver(ctx)

	subtitle, err := blocks.RenderRichText(home.BannerSubtitle, []string{blocks.FeatureBold, blocks.FeatureItalic})
	if err != nil {
		a.renderError(c, err)
		return
	}

	slides := make([]slideView, 0, len(home.CarouselImages))
	for _, item := range home.CarouselImages {
		text, err := blocks.RenderRichText(item.Text, nil)
		if err != nil {
			a.renderError(c, err)
			return
		}
		slides = append(slides, slideView{Title: item.Title, Text: text, ImageURL: imageURL(item.Image)})
	}

	content, err := renderColumn(home.Content, resolver)
	if err != nil {
		a.renderError(c, err)
		return
	}

	ctaURL := ""
	if home.BannerCTAID != nil {
		ctaURL, _ = resolver.PageURL(*home.BannerCTAID)
	}

	a.renderHTML(c, http.StatusOK, "home_page.html", gin.H{
		"title":          page.Title,
		"page":           home,
		"self":           home,
		"bannerSubtitle": subtitle,
		"bannerImageUrl": imageURL(home.BannerImage),
		"bannerCtaUrl":   ctaURL,
		"carousel":       slides,
		"content":        content,
	})
}

func (a *API) serveListing(c *gin.Context, page *db.Page, remainder string) {
	ctx := c.Request.Context()
	listing, err := a.blog.GetListing(ctx, page.ID)
	if err != nil {
		a.renderServiceError(c, err)
		return
	}

	data := gin.H{
		"title": listing.CustomTitle,
		"page":  listing,
		"self":  listing,
	}

	if remainder == "" {
		posts, err := a.blog.Posts(ctx, page)
		if err != nil {
			a.renderError(c, err)
			return
		}
		data["posts"] = newPostViews(posts)
		a.renderHTML(c, http.StatusOK, "blog_listing_page.html", data)
		return
	}

	route, params, ok := matchListingRoute(remainder)
	if !ok {
		a.renderNotFound(c)
		return
	}

	switch route {
	case RouteLatestPosts:
		latest, err := a.blog.LatestPosts(ctx, page)
		if err != nil {
			a.renderError(c, err)
			return
		}
		data["latest_posts"] = newPostViews(latest)
		a.renderHTML(c, http.StatusOK, "latest_posts.html", data)
	case RouteCategoryView:
		posts, category, err := a.blog.PostsByCategory(ctx, page, params["cat_slug"])
		if err != nil {
			a.renderError(c, err)
			return
		}
		data["posts"] = newPostViews(posts)
		data["category"] = category
		a.renderHTML(c, http.StatusOK, "blog_listing_page.html", data)
	case RouteSubscribe:
		a.renderHTML(c, http.StatusOK, "subscribe.html", data)
	}
}

func (a *API) serveEntry(c *gin.Context, page *db.Page) {
	ctx := c.Request.Context()
	entry, err := a.blog.Get(ctx, page.ID)
	if err != nil {
		a.renderServiceError(c, err)
		return
	}

	content, err := renderColumn(entry.Content, a.resolver(ctx))
	if err != nil {
		a.renderError(c, err)
		return
	}

	name := "blog_detail_page.html"
	if entry.IsArticle() {
		name = "article_blog_page.html"
	}

	post := newPostView(*entry)
	a.renderHTML(c, http.StatusOK, name, gin.H{
		"title":         post.Title,
		"page":          entry,
		"self":          entry,
		"post":          post,
		"introImageUrl": imageURL(entry.IntroImage),
		"listingUrl":    strings.TrimSuffix(page.URLPath, page.Slug+"/"),
		"content":       content,
	})
}

func renderColumn(raw []byte, resolver blocks.Resolver) (template.HTML, error) {
	col, err := blocks.ParseColumn(raw)
	if err != nil {
		return "", err
	}
	return blocks.Render(col, resolver)
}

func (a *API) renderNotFound(c *gin.Context) {
	a.renderHTML(c, http.StatusNotFound, "error.html", gin.H{
		"title":   "Page not found",
		"status":  http.StatusNotFound,
		"message": "Sorry, this page could not be found.",
	})
}

func (a *API) renderError(c *gin.Context, err error) {
	logger.Log.Error("render page", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.Error(err)
	a.renderHTML(c, http.StatusInternalServerError, "error.html", gin.H{
		"title":   "Server error",
		"status":  http.StatusInternalServerError,
		"message": "Something went wrong while rendering this page.",
	})
}

func (a *API) renderServiceError(c *gin.Context, err error) {
	if statusFor(err) == http.StatusNotFound {
		a.renderNotFound(c)
		return
	}
	a.renderError(c, err)
}
