package blocks

import (
	"bytes"
	"fmt"
	"html/template"
)

// Resolver turns page and image references into URLs at render time.
type Resolver interface {
	PageURL(id uint) (string, bool)
	ImageURL(id uint) (string, bool)
}

const blockTemplates = `
{{define "title_and_text_block"}}<section class="block block-title-and-text"><h2>{{.Title}}</h2><p>{{.Text}}</p></section>{{end}}
{{define "richtext_block"}}<section class="block block-richtext">{{.}}</section>{{end}}
{{define "card_block"}}<section class="block block-cards"><h2>{{.Title}}</h2><div class="cards">{{range .Cards}}<article class="card">{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Title}}">{{end}}<h3>{{.Title}}</h3><p>{{.Text}}</p>{{if .Href}}<a class="btn" href="{{.Href}}">Learn More</a>{{end}}</article>{{end}}</div></section>{{end}}
{{define "cta_block"}}<section class="block block-cta"><h2>{{.Title}}</h2>{{.Text}}{{if .Href}}<a class="btn" href="{{.Href}}">{{.ButtonText}}</a>{{end}}</section>{{end}}
`

var templates = template.Must(template.New("blocks").Parse(blockTemplates))

type cardView struct {
	Title    string
	Text     string
	ImageURL string
	Href     string
}

type cardGridView struct {
	Title string
	Cards []cardView
}

type ctaView struct {
	Title      string
	Text       template.HTML
	Href       string
	ButtonText string
}

// Href returns the link for a target, or an empty string when it has none.
func Href(t Target, resolver Resolver) string {
	if t.PageID != 0 {
		if resolver == nil {
			return ""
		}
		if url, ok := resolver.PageURL(t.PageID); ok {
			return url
		}
		return ""
	}
	return t.URL
}

// Render renders every block of the column in order. Blocks that fail to
// decode abort the render.
func Render(col Column, resolver Resolver) (template.HTML, error) {
	var buf bytes.Buffer
	for idx, block := range col {
		def, ok := registry[block.Type]
		if !ok {
			return "", fmt.Errorf("block %d: %w: %q", idx, ErrUnknownBlockType, block.Type)
		}
		value, err := block.Decode()
		if err != nil {
			return "", fmt.Errorf("block %d: %w", idx, err)
		}

		data, err := viewFor(def, value, resolver)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", idx, err)
		}
		if err := templates.ExecuteTemplate(&buf, def.Template, data); err != nil {
			return "", fmt.Errorf("render block %d: %w", idx, err)
		}
	}
	return template.HTML(buf.String()), nil
}

func viewFor(def Definition, value any, resolver Resolver) (any, error) {
	switch v := value.(type) {
	case TitleAndText:
		return v, nil
	case RichText:
		return RenderRichText(string(v), def.Features)
	case CardGrid:
		view := cardGridView{Title: v.Title, Cards: make([]cardView, 0, len(v.Cards))}
		for _, card := range v.Cards {
			item := cardView{Title: card.Title, Text: card.Text, Href: Href(card.Target(), resolver)}
			if resolver != nil {
				item.ImageURL, _ = resolver.ImageURL(card.Image)
			}
			view.Cards = append(view.Cards, item)
		}
		return view, nil
	case CallToAction:
		text, err := RenderRichText(v.Text, def.Features)
		if err != nil {
			return nil, err
		}
		buttonText := v.ButtonText
		if buttonText == "" {
			buttonText = DefaultButtonText
		}
		return ctaView{Title: v.Title, Text: text, Href: Href(v.Target(), resolver), ButtonText: buttonText}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownBlockType, value)
	}
}
