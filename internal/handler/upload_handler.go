package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/logger"
	"go.uber.org/zap"
)

// UploadImage 处理图片上传请求
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer src.Close()

	image, err := a.images.Upload(c.PostForm("title"), file.Filename, src)
	if err != nil {
		respondServiceError(c, err, "保存图片失败")
		return
	}

	logger.Log.Info("image uploaded", zap.Uint("id", image.ID), zap.String("file", image.FileName))
	c.JSON(http.StatusCreated, image)
}

// ListImages 分页返回图片
func (a *API) ListImages(c *gin.Context) {
	page := parsePositiveInt(c.DefaultQuery("page", "1"), 1)
	perPage := parsePositiveInt(c.DefaultQuery("per_page", "24"), 24)

	result, err := a.images.List(page, perPage)
	if err != nil {
		respondServiceError(c, err, "获取图片失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      result.Items,
		"total":      result.Total,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPages": result.TotalPages,
	})
}

// DeleteImage 删除未被引用的图片
func (a *API) DeleteImage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.images.Delete(id); err != nil {
		respondServiceError(c, err, "删除图片失败")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadDir and UploadURL expose where images live for static serving.
func (a *API) UploadDir() string { return a.images.Dir() }

func (a *API) UploadURL() string { return a.images.URLPath() }
