package router

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/trainclimb/internal/handler"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/web"
	"gorm.io/gorm"
)

const contentAPIPrefix = "/api/v2/"

// Options configures the engine.
type Options struct {
	SessionSecret      string
	UploadDir          string
	UploadURLPath      string
	SiteBaseURL        string
	SiteName           string
	CORSAllowedOrigins []string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(gdb *gorm.DB, opts Options) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(), contentAPICORS(opts.CORSAllowedOrigins))

	secret := opts.SessionSecret
	if secret == "" {
		secret = "trainclimb-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 60 * 60, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("trainclimb_session", store))

	tmpl, err := web.Templates(template.FuncMap{
		"formatDate": formatDate,
		"add": func(a, b int) int {
			return a + b
		},
	})
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	api := handler.NewAPI(gdb, handler.Options{
		UploadDir:   opts.UploadDir,
		UploadURL:   opts.UploadURLPath,
		SiteBaseURL: opts.SiteBaseURL,
		SiteName:    opts.SiteName,
	})

	// 静态文件服务
	r.StaticFS("/static", http.FS(web.Static()))
	r.Static(api.UploadURL(), api.UploadDir())

	r.GET("/healthz", api.Health)
	r.GET("/sitemap.xml", api.ShowSitemap)
	r.GET("/feed.xml", api.ShowFeed)

	content := r.Group("/api/v2")
	{
		content.GET("/pages", api.ListContentPages)
		content.GET("/pages/:id", api.GetContentPage)
		content.GET("/images/:id", api.GetContentImage)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台 API
		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.CurrentEditor)

			auth.GET("/page-types", api.ListPageTypes)
			auth.GET("/pages", api.ListPages)
			auth.POST("/pages", api.CreatePage)
			auth.GET("/pages/:id", api.GetPage)
			auth.PUT("/pages/:id", api.UpdatePage)
			auth.DELETE("/pages/:id", api.DeletePage)
			auth.POST("/pages/:id/publish", api.PublishPage)
			auth.POST("/pages/:id/unpublish", api.UnpublishPage)
			auth.PUT("/pages/:id/privacy", api.SetPagePrivacy)

			auth.GET("/authors", api.ListAuthors)
			auth.POST("/authors", api.CreateAuthor)
			auth.PUT("/authors/:id", api.UpdateAuthor)
			auth.DELETE("/authors/:id", api.DeleteAuthor)

			auth.GET("/categories", api.ListCategories)
			auth.POST("/categories", api.CreateCategory)
			auth.PUT("/categories/:id", api.UpdateCategory)
			auth.DELETE("/categories/:id", api.DeleteCategory)

			auth.GET("/menus", api.ListMenus)
			auth.POST("/menus", api.CreateMenu)
			auth.GET("/menus/:id", api.GetMenu)
			auth.PUT("/menus/:id", api.UpdateMenu)
			auth.DELETE("/menus/:id", api.DeleteMenu)

			auth.GET("/sites", api.ListSites)
			auth.POST("/sites", api.SaveSite)
			auth.PUT("/sites/:id", api.SaveSite)
			auth.GET("/sites/:id/social", api.GetSocialSettings)
			auth.PUT("/sites/:id/social", api.UpdateSocialSettings)

			auth.GET("/images", api.ListImages)
			auth.POST("/images", api.UploadImage)
			auth.DELETE("/images/:id", api.DeleteImage)

			auth.GET("/panels", api.ListPanels)
			auth.GET("/panels/:type", api.GetPanel)
		}
	}

	// 其余路径交给页面树解析
	r.NoRoute(api.ServePage)

	return r, nil
}

// contentAPICORS applies rs/cors to the read-only content API and answers preflights.
func contentAPICORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	policy := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})

	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, contentAPIPrefix) {
			c.Next()
			return
		}
		policy.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
