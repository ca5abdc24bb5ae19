package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/internal/service"
	"github.com/trainclimb/internal/view"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options configures the handler set.
type Options struct {
	UploadDir   string
	UploadURL   string
	SiteBaseURL string
	SiteName    string
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	tree       *service.PageTreeService
	home       *service.HomeService
	blog       *service.BlogService
	authors    *service.AuthorService
	categories *service.CategoryService
	menus      *service.MenuService
	social     *service.SocialSettingsService
	sites      *service.SiteService
	images     *service.ImageService
	baseURL    string
	siteName   string
}

type siteViewModel struct {
	ID       uint
	Name     string
	RootPage *db.Page
}

const (
	siteContextKey    = "__site"
	siteChromeContext = "__site_chrome"
)

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	tree := service.NewPageTreeService(gdb)
	siteName := strings.TrimSpace(opts.SiteName)
	if siteName == "" {
		siteName = "Train Climb"
	}

	return &API{
		db:         gdb,
		tree:       tree,
		home:       service.NewHomeService(gdb, tree),
		blog:       service.NewBlogService(gdb, tree),
		authors:    service.NewAuthorService(gdb),
		categories: service.NewCategoryService(gdb),
		menus:      service.NewMenuService(gdb),
		social:     service.NewSocialSettingsService(gdb),
		sites:      service.NewSiteService(gdb),
		images:     service.NewImageService(gdb, opts.UploadDir, opts.UploadURL),
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.SiteBaseURL), "/"),
		siteName:   siteName,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// currentSite resolves the site serving the request host, cached per request.
func (a *API) currentSite(c *gin.Context) (siteViewModel, error) {
	if cached, exists := c.Get(siteContextKey); exists {
		if vm, ok := cached.(siteViewModel); ok {
			return vm, nil
		}
	}

	site, err := a.sites.FindForRequest(c.Request.Host)
	if err != nil {
		return siteViewModel{}, err
	}

	vm := siteViewModel{ID: site.ID, Name: strings.TrimSpace(site.SiteName), RootPage: &site.RootPage}
	if vm.Name == "" {
		vm.Name = a.siteName
	}
	c.Set(siteContextKey, vm)
	return vm, nil
}

type siteChrome struct {
	menus  map[string]db.Menu
	social *db.SocialMediaSettings
}

// chrome loads the menus and social links every public template shows.
func (a *API) chrome(c *gin.Context, site siteViewModel) siteChrome {
	if cached, exists := c.Get(siteChromeContext); exists {
		if vm, ok := cached.(siteChrome); ok {
			return vm
		}
	}

	vm := siteChrome{menus: map[string]db.Menu{}, social: &db.SocialMediaSettings{}}
	if menus, err := a.menus.BySlug(); err == nil {
		vm.menus = menus
	} else {
		logger.Log.Warn("load menus", zap.Error(err))
	}
	if site.ID != 0 {
		if social, err := a.social.ForSite(site.ID); err == nil {
			vm.social = social
		} else {
			logger.Log.Warn("load social settings", zap.Uint("site_id", site.ID), zap.Error(err))
		}
	}

	c.Set(siteChromeContext, vm)
	return vm
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	site, err := a.currentSite(c)
	if err != nil && !errors.Is(err, service.ErrSiteNotFound) {
		c.Error(err)
	}
	if site.Name == "" {
		site.Name = a.siteName
	}
	chrome := a.chrome(c, site)

	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}
	if _, exists := payload["site"]; !exists {
		payload["site"] = gin.H{"name": site.Name, "baseUrl": a.baseURL}
	}
	if _, exists := payload["menus"]; !exists {
		payload["menus"] = chrome.menus
	}
	if _, exists := payload["social"]; !exists {
		payload["social"] = chrome.social
		payload["social_links"] = view.SocialLinks(chrome.social)
	}
	if _, exists := payload["request_path"]; !exists {
		payload["request_path"] = c.Request.URL.Path
	}

	c.HTML(status, template, payload)
}
