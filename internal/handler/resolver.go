package handler

import (
	"context"

	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/service"
)

// linkResolver resolves block references for one render, memoising lookups.
type linkResolver struct {
	ctx    context.Context
	tree   *service.PageTreeService
	images *service.ImageService
	pages  map[uint]string
	urls   map[uint]string
}

var _ blocks.Resolver = (*linkResolver)(nil)

func (a *API) resolver(ctx context.Context) *linkResolver {
	return &linkResolver{
		ctx:    ctx,
		tree:   a.tree,
		images: a.images,
		pages:  map[uint]string{},
		urls:   map[uint]string{},
	}
}

func (r *linkResolver) PageURL(id uint) (string, bool) {
	if url, ok := r.pages[id]; ok {
		return url, url != ""
	}
	page, err := r.tree.Get(r.ctx, id)
	if err != nil || !page.Live {
		r.pages[id] = ""
		return "", false
	}
	r.pages[id] = page.URLPath
	return page.URLPath, true
}

func (r *linkResolver) ImageURL(id uint) (string, bool) {
	if url, ok := r.urls[id]; ok {
		return url, url != ""
	}
	image, err := r.images.Get(id)
	if err != nil {
		r.urls[id] = ""
		return "", false
	}
	r.urls[id] = image.URL
	return image.URL, true
}

func imageURL(image *db.Image) string {
	if image == nil {
		return ""
	}
	return image.URL
}
