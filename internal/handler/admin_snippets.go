package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/panels"
	"github.com/trainclimb/internal/service"
)

type authorRequest struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	ImageID *uint  `json:"image_id"`
}

func (r authorRequest) input() service.AuthorInput {
	return service.AuthorInput{Name: r.Name, Website: r.Website, ImageID: r.ImageID}
}

// ListAuthors 返回全部作者
func (a *API) ListAuthors(c *gin.Context) {
	authors, err := a.authors.List()
	if err != nil {
		respondServiceError(c, err, "获取作者失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": authors})
}

// CreateAuthor 新建作者
func (a *API) CreateAuthor(c *gin.Context) {
	var req authorRequest
	if !bindJSON(c, &req, "无效的作者数据") {
		return
	}
	author, err := a.authors.Create(req.input())
	if err != nil {
		respondServiceError(c, err, "创建作者失败")
		return
	}
	c.JSON(http.StatusCreated, author)
}

// UpdateAuthor 更新作者
func (a *API) UpdateAuthor(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req authorRequest
	if !bindJSON(c, &req, "无效的作者数据") {
		return
	}
	author, err := a.authors.Update(id, req.input())
	if err != nil {
		respondServiceError(c, err, "更新作者失败")
		return
	}
	c.JSON(http.StatusOK, author)
}

// DeleteAuthor 删除未被引用的作者
func (a *API) DeleteAuthor(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.authors.Delete(id); err != nil {
		respondServiceError(c, err, "删除作者失败")
		return
	}
	c.Status(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ListCategories returns categories with their published usage.
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List()
	if err != nil {
		respondServiceError(c, err, "获取分类失败")
		return
	}
	usage, err := a.categories.PublishedUsage()
	if err != nil {
		respondServiceError(c, err, "获取分类失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": categories, "usage": usage})
}

// CreateCategory 新建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "无效的分类数据") {
		return
	}
	category, err := a.categories.Create(req.Name, req.Slug)
	if err != nil {
		respondServiceError(c, err, "创建分类失败")
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req, "无效的分类数据") {
		return
	}
	category, err := a.categories.Update(id, req.Name, req.Slug)
	if err != nil {
		respondServiceError(c, err, "更新分类失败")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory 删除分类
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.categories.Delete(id); err != nil {
		respondServiceError(c, err, "删除分类失败")
		return
	}
	c.Status(http.StatusNoContent)
}

type menuItemRequest struct {
	LinkTitle    string `json:"link_title"`
	LinkURL      string `json:"link_url"`
	LinkPageID   *uint  `json:"link_page_id"`
	OpenInNewTab bool   `json:"open_in_new_tab"`
}

type menuRequest struct {
	Title string            `json:"title"`
	Slug  string            `json:"slug"`
	Items []menuItemRequest `json:"menu_items"`
}

func (r menuRequest) input() service.MenuInput {
	items := make([]service.MenuItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, service.MenuItemInput{
			LinkTitle:    item.LinkTitle,
			LinkURL:      item.LinkURL,
			LinkPageID:   item.LinkPageID,
			OpenInNewTab: item.OpenInNewTab,
		})
	}
	return service.MenuInput{Title: r.Title, Slug: r.Slug, Items: items}
}

// ListMenus 返回全部菜单
func (a *API) ListMenus(c *gin.Context) {
	menus, err := a.menus.List()
	if err != nil {
		respondServiceError(c, err, "获取菜单失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": menus})
}

// GetMenu returns a menu with each item's effective link and title.
func (a *API) GetMenu(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	menu, err := a.menus.Get(id)
	if err != nil {
		respondServiceError(c, err, "获取菜单失败")
		return
	}

	links := make([]gin.H, 0, len(menu.Items))
	for _, item := range menu.Items {
		links = append(links, gin.H{
			"id":              item.ID,
			"title":           item.DisplayTitle(),
			"link":            item.Link(),
			"open_in_new_tab": item.OpenInNewTab,
		})
	}
	c.JSON(http.StatusOK, gin.H{"menu": menu, "links": links})
}

// CreateMenu 新建菜单
func (a *API) CreateMenu(c *gin.Context) {
	var req menuRequest
	if !bindJSON(c, &req, "无效的菜单数据") {
		return
	}
	if err := panels.CheckInlineCount(panels.TypeMenu, "menu_items", len(req.Items)); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	menu, err := a.menus.Create(req.input())
	if err != nil {
		respondServiceError(c, err, "创建菜单失败")
		return
	}
	c.JSON(http.StatusCreated, menu)
}

// UpdateMenu 更新菜单及其条目顺序
func (a *API) UpdateMenu(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req menuRequest
	if !bindJSON(c, &req, "无效的菜单数据") {
		return
	}
	if err := panels.CheckInlineCount(panels.TypeMenu, "menu_items", len(req.Items)); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	menu, err := a.menus.Update(id, req.input())
	if err != nil {
		respondServiceError(c, err, "更新菜单失败")
		return
	}
	c.JSON(http.StatusOK, menu)
}

// DeleteMenu 删除菜单
func (a *API) DeleteMenu(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.menus.Delete(id); err != nil {
		respondServiceError(c, err, "删除菜单失败")
		return
	}
	c.Status(http.StatusNoContent)
}

type siteRequest struct {
	Hostname      string `json:"hostname"`
	Port          int    `json:"port"`
	SiteName      string `json:"site_name"`
	RootPageID    uint   `json:"root_page_id"`
	IsDefaultSite bool   `json:"is_default_site"`
}

// ListSites 返回全部站点
func (a *API) ListSites(c *gin.Context) {
	sites, err := a.sites.List()
	if err != nil {
		respondServiceError(c, err, "获取站点失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sites})
}

// SaveSite creates a site, or updates it when :id is present.
func (a *API) SaveSite(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		parsed, err := parseUintParam(c, "id")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		id = parsed
	}
	var req siteRequest
	if !bindJSON(c, &req, "无效的站点数据") {
		return
	}

	site, err := a.sites.Save(id, service.SiteInput{
		Hostname:      req.Hostname,
		Port:          req.Port,
		SiteName:      req.SiteName,
		RootPageID:    req.RootPageID,
		IsDefaultSite: req.IsDefaultSite,
	})
	if err != nil {
		respondServiceError(c, err, "保存站点失败")
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	c.JSON(status, site)
}

type socialRequest struct {
	Facebook string `json:"facebook"`
	Twitter  string `json:"twitter"`
	YouTube  string `json:"youtube"`
}

// GetSocialSettings 返回站点的社交媒体设置
func (a *API) GetSocialSettings(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.sites.Get(id); err != nil {
		respondServiceError(c, err, "获取站点失败")
		return
	}
	settings, err := a.social.ForSite(id)
	if err != nil {
		respondServiceError(c, err, "获取社交设置失败")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSocialSettings 更新站点的社交媒体设置
func (a *API) UpdateSocialSettings(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	var req socialRequest
	if !bindJSON(c, &req, "无效的社交设置") {
		return
	}
	if _, err := a.sites.Get(id); err != nil {
		respondServiceError(c, err, "获取站点失败")
		return
	}
	settings, err := a.social.Update(id, service.SocialSettingsInput{
		Facebook: req.Facebook,
		Twitter:  req.Twitter,
		YouTube:  req.YouTube,
	})
	if err != nil {
		respondServiceError(c, err, "更新社交设置失败")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// ListPanels returns the edit panel of every type.
func (a *API) ListPanels(c *gin.Context) {
	items := make([]panels.Panel, 0, len(panels.Types()))
	for _, name := range panels.Types() {
		panel, _ := panels.Lookup(name)
		items = append(items, panel)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetPanel returns the edit panel of one type.
func (a *API) GetPanel(c *gin.Context) {
	panel, ok := panels.Lookup(c.Param("type"))
	if !ok {
		respondError(c, http.StatusNotFound, panels.ErrUnknownPanel.Error())
		return
	}
	c.JSON(http.StatusOK, panel)
}
