// Package panels holds the static edit form layout of every editable type.
// The admin API serves these tables as data and checks inline counts against them.
package panels

import (
	"errors"
	"fmt"
	"sort"

	"github.com/trainclimb/internal/blocks"
)

// Widgets.
const (
	WidgetChar         = "char"
	WidgetRichText     = "richtext"
	WidgetImageChooser = "image_chooser"
	WidgetPageChooser  = "page_chooser"
	WidgetStream       = "stream"
	WidgetInline       = "inline"
	WidgetURL          = "url"
	WidgetBool         = "bool"
	WidgetSlug         = "slug"
)

// Editable types.
const (
	TypeHomePage            = "home.HomePage"
	TypeBlogListingPage     = "blog.BlogListingPage"
	TypeBlogDetailPage      = "blog.BlogDetailPage"
	TypeArticleBlogPage     = "blog.ArticleBlogPage"
	TypeBlogAuthor          = "blog.BlogAuthor"
	TypeBlogCategory        = "blog.BlogCategory"
	TypeMenu                = "menus.Menu"
	TypeSocialMediaSettings = "site_settings.SocialMediaSettings"
)

var ErrUnknownPanel = errors.New("unknown panel type")

// Field is one form input.
type Field struct {
	Name      string   `json:"name"`
	Label     string   `json:"label,omitempty"`
	Widget    string   `json:"widget"`
	Required  bool     `json:"required,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
	MinNum    int      `json:"min_num,omitempty"`
	MaxNum    int      `json:"max_num,omitempty"`
	Features  []string `json:"features,omitempty"`
	// Blocks lists the stream block types a stream widget accepts.
	Blocks   []string `json:"blocks,omitempty"`
	HelpText string   `json:"help_text,omitempty"`
	// Fields describes one row of an inline widget.
	Fields []Field `json:"fields,omitempty"`
}

// Group is a headed set of fields.
type Group struct {
	Heading string  `json:"heading,omitempty"`
	Fields  []Field `json:"fields"`
}

// Panel is the full edit form of one type.
type Panel struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Groups []Group `json:"groups"`
}

var pageTitle = Group{Fields: []Field{
	{Name: "title", Widget: WidgetChar, Required: true, MaxLength: 255},
	{Name: "slug", Widget: WidgetSlug, MaxLength: 255},
}}

var detailFields = []Field{
	{Name: "custom_title", Widget: WidgetChar, Required: true, MaxLength: 100, HelpText: "Overwrites the default title"},
	{Name: "blog_image", Widget: WidgetImageChooser, Required: true},
	{Name: "categories", Widget: WidgetInline, Fields: []Field{{Name: "category", Widget: WidgetChar}}},
	{Name: "authors", Label: "Author(s)", Widget: WidgetInline, MinNum: 1, MaxNum: 4, Fields: []Field{
		{Name: "author", Widget: WidgetChar, Required: true},
	}},
	{Name: "content", Widget: WidgetStream, Required: true, Blocks: []string{
		blocks.TypeTitleAndText, blocks.TypeFullRichText, blocks.TypeSimpleRichText, blocks.TypeCards, blocks.TypeCTA,
	}},
}

var registry = map[string]Panel{
	TypeHomePage: {
		Type:  TypeHomePage,
		Label: "Home Page",
		Groups: []Group{
			pageTitle,
			{Heading: "banner options", Fields: []Field{
				{Name: "banner_title", Widget: WidgetChar, Required: true, MaxLength: 100},
				{Name: "banner_subtitle", Widget: WidgetRichText, Required: true, Features: []string{blocks.FeatureBold, blocks.FeatureItalic}},
				{Name: "banner_image", Widget: WidgetImageChooser, Required: true},
				{Name: "banner_cta", Widget: WidgetPageChooser},
			}},
			{Heading: "carousel", Fields: []Field{
				{Name: "carousel_images", Label: "Image", Widget: WidgetInline, MinNum: 1, MaxNum: 5, Fields: []Field{
					{Name: "title", Widget: WidgetChar, Required: true, MaxLength: 40},
					{Name: "text", Widget: WidgetRichText, Required: true},
					{Name: "carousel_image", Widget: WidgetImageChooser, Required: true},
				}},
			}},
			{Fields: []Field{
				{Name: "content", Widget: WidgetStream, Blocks: []string{blocks.TypeCTA}},
			}},
		},
	},
	TypeBlogListingPage: {
		Type:  TypeBlogListingPage,
		Label: "Blog Listing Page",
		Groups: []Group{
			pageTitle,
			{Fields: []Field{
				{Name: "custom_title", Widget: WidgetChar, Required: true, MaxLength: 100, HelpText: "Overwrites the default title"},
			}},
		},
	},
	TypeBlogDetailPage: {
		Type:   TypeBlogDetailPage,
		Label:  "Blog Detail Page",
		Groups: []Group{pageTitle, {Fields: detailFields}},
	},
	TypeArticleBlogPage: {
		Type:  TypeArticleBlogPage,
		Label: "Article Blog Page",
		Groups: []Group{
			pageTitle,
			{Fields: append(append([]Field{}, detailFields...),
				Field{Name: "subtitle", Widget: WidgetChar, MaxLength: 100},
				Field{Name: "intro_image", Widget: WidgetImageChooser},
			)},
		},
	},
	TypeBlogAuthor: {
		Type:  TypeBlogAuthor,
		Label: "Blog Author",
		Groups: []Group{
			{Heading: "Name and Image", Fields: []Field{
				{Name: "name", Widget: WidgetChar, Required: true, MaxLength: 100},
				{Name: "image", Widget: WidgetImageChooser},
			}},
			{Heading: "Links", Fields: []Field{
				{Name: "website", Widget: WidgetURL},
			}},
		},
	},
	TypeBlogCategory: {
		Type:  TypeBlogCategory,
		Label: "Blog Category",
		Groups: []Group{{Fields: []Field{
			{Name: "name", Widget: WidgetChar, Required: true, MaxLength: 255},
			{Name: "slug", Widget: WidgetSlug, MaxLength: 255, HelpText: "A slug to identify posts by this category"},
		}}},
	},
	TypeMenu: {
		Type:  TypeMenu,
		Label: "Menu",
		Groups: []Group{
			{Heading: "Menu", Fields: []Field{
				{Name: "title", Widget: WidgetChar, Required: true, MaxLength: 50},
				{Name: "slug", Widget: WidgetSlug, MaxLength: 100},
			}},
			{Fields: []Field{
				{Name: "menu_items", Label: "Menu Item", Widget: WidgetInline, Fields: []Field{
					{Name: "link_title", Widget: WidgetChar, MaxLength: 50},
					{Name: "link_url", Widget: WidgetChar, MaxLength: 500},
					{Name: "link_page", Widget: WidgetPageChooser},
					{Name: "open_in_new_tab", Widget: WidgetBool},
				}},
			}},
		},
	},
	TypeSocialMediaSettings: {
		Type:  TypeSocialMediaSettings,
		Label: "Social Media Settings",
		Groups: []Group{{Heading: "Social Media Settings", Fields: []Field{
			{Name: "facebook", Widget: WidgetURL, HelpText: "Facebook url"},
			{Name: "twitter", Widget: WidgetURL, HelpText: "Twitter url"},
			{Name: "youtube", Widget: WidgetURL, HelpText: "Youtube channel url"},
		}}},
	},
}

// Lookup returns the panel of a type.
func Lookup(typeName string) (Panel, bool) {
	panel, ok := registry[typeName]
	return panel, ok
}

// Types lists every type with a panel, sorted.
func Types() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Field finds a field of the panel by name, searching every group.
func (p Panel) Field(name string) (Field, bool) {
	for _, group := range p.Groups {
		for _, field := range group.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return Field{}, false
}

// CheckInlineCount validates the number of rows submitted for an inline field.
func CheckInlineCount(typeName, fieldName string, count int) error {
	panel, ok := Lookup(typeName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPanel, typeName)
	}
	field, ok := panel.Field(fieldName)
	if !ok || field.Widget != WidgetInline {
		return nil
	}
	if field.MinNum > 0 && count < field.MinNum {
		return fmt.Errorf("%s needs at least %d entries", fieldName, field.MinNum)
	}
	if field.MaxNum > 0 && count > field.MaxNum {
		return fmt.Errorf("%s allows at most %d entries", fieldName, field.MaxNum)
	}
	return nil
}
