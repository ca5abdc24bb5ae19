package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/internal/panels"
	"github.com/trainclimb/internal/service"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

var (
	notFoundErrors = []error{
		service.ErrPageNotFound,
		service.ErrHomeNotFound,
		service.ErrBlogListingNotFound,
		service.ErrBlogPostNotFound,
		service.ErrAuthorNotFound,
		service.ErrCategoryNotFound,
		service.ErrMenuNotFound,
		service.ErrSiteNotFound,
		service.ErrImageNotFound,
		panels.ErrUnknownPanel,
	}
	conflictErrors = []error{
		service.ErrPageSlugInUse,
		service.ErrPageTypeLimit,
		service.ErrCategoryExists,
		service.ErrAuthorInUse,
		service.ErrImageInUse,
		service.ErrPageTreeFull,
	}
	invalidErrors = []error{
		service.ErrPageTitleMissing,
		service.ErrPageSlugInvalid,
		service.ErrPageTypeUnknown,
		service.ErrPageParentType,
		service.ErrHomeInvalidInput,
		service.ErrCarouselCount,
		service.ErrBlogInvalidInput,
		service.ErrAuthorCount,
		service.ErrInvalidPublishState,
		service.ErrAuthorInvalidInput,
		service.ErrCategoryNameMissing,
		service.ErrMenuTitleMissing,
		service.ErrMenuItemInvalid,
		service.ErrSocialURLInvalid,
		service.ErrSiteInvalidInput,
		service.ErrImageUnsupported,
		service.ErrImageTooLarge,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps service sentinel errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case matchesAny(err, invalidErrors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err as JSON. Unexpected errors are logged and hidden.
func respondServiceError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error(fallback, zap.String("path", c.Request.URL.Path), zap.Error(err))
		respondError(c, status, fallback)
		return
	}
	respondError(c, status, err.Error())
}
