package handler

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/logger"
	"go.uber.org/zap"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Author      string   `xml:"author,omitempty"`
	Category    []string `xml:"category,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
}

// ShowSitemap lists every live public page of the current site.
func (a *API) ShowSitemap(c *gin.Context) {
	site, err := a.currentSite(c)
	if err != nil {
		respondServiceError(c, err, "生成站点地图失败")
		return
	}

	pages, err := a.servablePages(c.Request.Context(), site.RootPage, "")
	if err != nil {
		respondServiceError(c, err, "生成站点地图失败")
		return
	}

	urls := make([]sitemapURL, 0, len(pages))
	for _, page := range pages {
		entry := sitemapURL{Loc: a.absoluteURL(page.URLPath)}
		if page.LastPublishedAt != nil {
			entry.LastMod = page.LastPublishedAt.UTC().Format("2006-01-02")
		}
		urls = append(urls, entry)
	}

	writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

// ShowFeed renders the published blog entries of the current site as RSS 2.0.
func (a *API) ShowFeed(c *gin.Context) {
	site, err := a.currentSite(c)
	if err != nil {
		respondServiceError(c, err, "生成订阅失败")
		return
	}

	entries, err := a.blog.Posts(c.Request.Context(), site.RootPage)
	if err != nil {
		respondServiceError(c, err, "生成订阅失败")
		return
	}

	items := make([]rssItem, 0, len(entries))
	for _, entry := range entries {
		post := newPostView(entry)
		link := a.absoluteURL(post.URL)
		item := rssItem{
			Title:       post.Title,
			Link:        link,
			Description: post.Subtitle,
			GUID:        link,
		}
		if post.PublishedAt != nil {
			item.PubDate = post.PublishedAt.UTC().Format(time.RFC1123Z)
		}
		if len(post.Authors) > 0 {
			item.Author = post.Authors[0].Name
		}
		for _, category := range post.Categories {
			item.Category = append(item.Category, category.Name)
		}
		items = append(items, item)
	}

	writeXML(c, "application/rss+xml; charset=utf-8", rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       site.Name,
			Link:        a.absoluteURL("/"),
			Description: site.Name + " blog",
			Items:       items,
		},
	})
}

func writeXML(c *gin.Context, contentType string, payload any) {
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write([]byte(xml.Header)); err != nil {
		return
	}
	if err := xml.NewEncoder(c.Writer).Encode(payload); err != nil {
		logger.Log.Error("encode xml", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
}
