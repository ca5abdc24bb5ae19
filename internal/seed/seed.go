// Package seed fills an empty database with a demo site.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
	"github.com/trainclimb/internal/logger"
	"github.com/trainclimb/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrAlreadySeeded is returned when the database already holds a home page.
var ErrAlreadySeeded = errors.New("database already has a home page")

// Options controls where demo images are written.
type Options struct {
	UploadDir string
	UploadURL string
	Hostname  string
	Port      int
}

// Result summarises what was created.
type Result struct {
	Home       *db.HomePage
	Listing    *db.BlogListingPage
	Posts      []*db.BlogDetailPage
	Categories []*db.BlogCategory
	Authors    []*db.BlogAuthor
	Menu       *db.Menu
	Site       *db.Site
}

type demoPost struct {
	title      string
	article    bool
	subtitle   string
	categories []int
	authors    []int
	body       string
}

var demoPosts = []demoPost{
	{
		title:      "Hangboard basics",
		categories: []int{0},
		authors:    []int{0},
		body:       "Start with **short hangs** on a big edge and add load slowly.",
	},
	{
		title:      "Planning a bouldering season",
		categories: []int{0, 1},
		authors:    []int{0, 1},
		body:       "Split the year into *base*, *strength* and *performance* blocks.",
	},
	{
		title:      "Finger injuries explained",
		article:    true,
		subtitle:   "What pulleys are and how to keep them healthy",
		categories: []int{2},
		authors:    []int{1},
		body:       "Most climbing injuries affect the A2 pulley. Warm up and respect pain.",
	},
}

// Run creates the demo content inside one transaction.
func Run(ctx context.Context, gdb *gorm.DB, opts Options) (*Result, error) {
	existing, err := service.NewHomeService(gdb, service.NewPageTreeService(gdb)).Current(ctx)
	if err == nil {
		logger.Log.Info("home page exists, skipping seed", zap.Uint("home_page_id", existing.PageID))
		return nil, ErrAlreadySeeded
	}
	if !errors.Is(err, service.ErrHomeNotFound) {
		return nil, fmt.Errorf("look up home page: %w", err)
	}

	result := &Result{}
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tree := service.NewPageTreeService(tx)
		images := service.NewImageService(tx, opts.UploadDir, opts.UploadURL)

		banner, err := uploadSwatch(images, "Banner", color.RGBA{R: 36, G: 99, B: 235, A: 255})
		if err != nil {
			return err
		}
		slide, err := uploadSwatch(images, "Crag at sunset", color.RGBA{R: 234, G: 88, B: 12, A: 255})
		if err != nil {
			return err
		}

		home, err := service.NewHomeService(tx, tree).Create(ctx, nil, service.HomeInput{
			Title:          "Home",
			Slug:           "home",
			BannerTitle:    "Train smarter, climb harder",
			BannerSubtitle: "Plans and notes for *every* climber",
			BannerImageID:  &banner.ID,
			Carousel: []service.CarouselInput{
				{Title: "Outdoor season", Text: "Plan your **trips** early.", ImageID: &slide.ID},
			},
		})
		if err != nil {
			return fmt.Errorf("create home: %w", err)
		}
		if _, err := tree.Publish(ctx, home.PageID); err != nil {
			return err
		}
		result.Home = home

		blog := service.NewBlogService(tx, tree)
		listing, err := blog.CreateListing(ctx, &home.PageID, service.ListingInput{
			Title:       "Blog",
			Slug:        "blog",
			CustomTitle: "Training journal",
		})
		if err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		if _, err := tree.Publish(ctx, listing.PageID); err != nil {
			return err
		}
		result.Listing = listing

		categories := service.NewCategoryService(tx)
		for _, name := range []string{"Training", "Planning", "Health"} {
			category, err := categories.Create(name, "")
			if err != nil {
				return fmt.Errorf("create category %s: %w", name, err)
			}
			result.Categories = append(result.Categories, category)
		}

		authors := service.NewAuthorService(tx)
		for _, name := range []string{"Ada Crimp", "Lin Sloper"} {
			author, err := authors.Create(service.AuthorInput{Name: name, Website: "https://example.com"})
			if err != nil {
				return fmt.Errorf("create author %s: %w", name, err)
			}
			result.Authors = append(result.Authors, author)
		}

		for _, post := range demoPosts {
			entry, err := createPost(ctx, blog, listing.PageID, banner.ID, post, result)
			if err != nil {
				return err
			}
			result.Posts = append(result.Posts, entry)
		}

		menu, err := service.NewMenuService(tx).Create(service.MenuInput{
			Title: "Main",
			Items: []service.MenuItemInput{
				{LinkPageID: &home.PageID},
				{LinkTitle: "Journal", LinkPageID: &listing.PageID},
				{LinkTitle: "Latest", LinkURL: listing.Page.URLPath + "latest/"},
			},
		})
		if err != nil {
			return fmt.Errorf("create menu: %w", err)
		}
		result.Menu = menu

		hostname := opts.Hostname
		if hostname == "" {
			hostname = "localhost"
		}
		site, err := service.NewSiteService(tx).Save(0, service.SiteInput{
			Hostname:      hostname,
			Port:          opts.Port,
			SiteName:      "Train Climb",
			RootPageID:    home.PageID,
			IsDefaultSite: true,
		})
		if err != nil {
			return fmt.Errorf("create site: %w", err)
		}
		result.Site = site

		_, err = service.NewSocialSettingsService(tx).Update(site.ID, service.SocialSettingsInput{
			YouTube: "https://www.youtube.com/@trainclimb",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("demo site seeded",
		zap.Uint("home_page_id", result.Home.PageID),
		zap.Int("posts", len(result.Posts)),
	)
	return result, nil
}

func createPost(ctx context.Context, blog *service.BlogService, listingID, imageID uint, post demoPost, result *Result) (*db.BlogDetailPage, error) {
	block, err := blocks.NewBlock(blocks.TypeFullRichText, post.body)
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(blocks.Column{block})
	if err != nil {
		return nil, err
	}

	input := service.BlogInput{
		Title:       post.title,
		CustomTitle: post.title,
		BlogImageID: &imageID,
		Content:     content,
		Subtitle:    post.subtitle,
	}
	for _, idx := range post.categories {
		input.CategoryIDs = append(input.CategoryIDs, result.Categories[idx].ID)
	}
	for _, idx := range post.authors {
		input.AuthorIDs = append(input.AuthorIDs, result.Authors[idx].ID)
	}

	create := blog.CreateDetail
	if post.article {
		create = blog.CreateArticle
	}
	entry, err := create(ctx, &listingID, input)
	if err != nil {
		return nil, fmt.Errorf("create post %q: %w", post.title, err)
	}
	return blog.Publish(ctx, entry.PageID)
}

// uploadSwatch stores a small solid PNG so demo pages have real images.
func uploadSwatch(images *service.ImageService, title string, fill color.RGBA) (*db.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return images.Upload(title, title+".png", &buf)
}
