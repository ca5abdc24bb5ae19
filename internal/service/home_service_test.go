package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/trainclimb/internal/blocks"
	"github.com/trainclimb/internal/db"
)

func seedImage(t *testing.T, svc *HomeService, name string) *uint {
	t.Helper()
	img := db.Image{Title: name, FileName: name + ".png", URL: "/uploads/" + name + ".png", Width: 10, Height: 10}
	if err := svc.db.Create(&img).Error; err != nil {
		t.Fatalf("seed image: %v", err)
	}
	return &img.ID
}

func validHomeInput(t *testing.T, svc *HomeService, slides int) HomeInput {
	t.Helper()
	input := HomeInput{
		Title:          "Home",
		BannerTitle:    "Climb more",
		BannerSubtitle: "Trips, *stories* and **beta**",
		BannerImageID:  seedImage(t, svc, "banner"),
	}
	for i := 0; i < slides; i++ {
		input.Carousel = append(input.Carousel, CarouselInput{Title: "Slide", Text: "Text", ImageID: seedImage(t, svc, "slide")})
	}
	return input
}

func TestHomeServiceCreateAndReorderCarousel(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	svc := NewHomeService(gdb, tree)
	ctx := t.Context()

	input := validHomeInput(t, svc, 3)
	input.Carousel[0].Title = "First"
	input.Carousel[2].Title = "Last"

	cta, err := blocks.NewBlock(blocks.TypeCTA, blocks.CallToAction{Title: "Join", Text: "Come **along**", ButtonURL: "https://example.com"})
	if err != nil {
		t.Fatalf("new block: %v", err)
	}
	input.Content, _ = json.Marshal(blocks.Column{cta})

	home, err := svc.Create(ctx, nil, input)
	if err != nil {
		t.Fatalf("create home: %v", err)
	}
	if home.Page.ContentType != ContentTypeHome || home.Page.URLPath != "/" {
		t.Fatalf("unexpected tree node: %+v", home.Page)
	}
	if len(home.CarouselImages) != 3 || home.CarouselImages[0].Title != "First" || home.CarouselImages[2].Title != "Last" {
		t.Fatalf("carousel not stored in order: %+v", home.CarouselImages)
	}

	col, err := blocks.ParseColumn(home.Content)
	if err != nil {
		t.Fatalf("parse content: %v", err)
	}
	value, err := col[0].Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if value.(blocks.CallToAction).ButtonText != blocks.DefaultButtonText {
		t.Fatalf("expected default button text, got %+v", value)
	}

	input.Carousel = input.Carousel[:1]
	input.Carousel[0].Title = "Only"
	updated, err := svc.Update(ctx, home.PageID, input)
	if err != nil {
		t.Fatalf("update home: %v", err)
	}
	if len(updated.CarouselImages) != 1 || updated.CarouselImages[0].Title != "Only" {
		t.Fatalf("expected carousel to be replaced, got %+v", updated.CarouselImages)
	}

	current, err := svc.Current(ctx)
	if err != nil || current.ID != home.ID {
		t.Fatalf("expected current home %d, got %+v (%v)", home.ID, current, err)
	}
}

func TestHomeServiceValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	tree := NewPageTreeService(gdb)
	svc := NewHomeService(gdb, tree)
	ctx := t.Context()

	tests := []struct {
		name   string
		mutate func(*HomeInput)
		want   error
	}{
		{name: "no carousel", mutate: func(in *HomeInput) { in.Carousel = nil }, want: ErrCarouselCount},
		{name: "six slides", mutate: func(in *HomeInput) {
			for len(in.Carousel) < 6 {
				in.Carousel = append(in.Carousel, in.Carousel[0])
			}
		}, want: ErrCarouselCount},
		{name: "missing banner title", mutate: func(in *HomeInput) { in.BannerTitle = " " }, want: ErrHomeInvalidInput},
		{name: "slide title too long", mutate: func(in *HomeInput) {
			in.Carousel[0].Title = "this carousel title is far too long to be shown"
		}, want: ErrHomeInvalidInput},
		{name: "non cta block", mutate: func(in *HomeInput) {
			in.Content = json.RawMessage(`[{"type":"full_richtext","value":"hello"}]`)
		}, want: blocks.ErrBlockTypeNotAllowed},
		{name: "unknown banner image", mutate: func(in *HomeInput) {
			missing := uint(999)
			in.BannerImageID = &missing
		}, want: ErrImageNotFound},
		{name: "unknown slide image", mutate: func(in *HomeInput) {
			missing := uint(999)
			in.Carousel[0].ImageID = &missing
		}, want: ErrImageNotFound},
		{name: "unknown cta page", mutate: func(in *HomeInput) {
			missing := uint(404)
			in.BannerCTAID = &missing
		}, want: ErrPageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validHomeInput(t, svc, 1)
			tt.mutate(&input)
			if _, err := svc.Create(ctx, nil, input); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := svc.Create(ctx, nil, validHomeInput(t, svc, 1)); err != nil {
		t.Fatalf("create home: %v", err)
	}
	second := validHomeInput(t, svc, 1)
	second.Title = "Another home"
	if _, err := svc.Create(ctx, nil, second); !errors.Is(err, ErrPageTypeLimit) {
		t.Fatalf("expected ErrPageTypeLimit, got %v", err)
	}
}
