package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Stream block type keys as stored in content columns.
const (
	TypeTitleAndText   = "Title_and_text"
	TypeFullRichText   = "full_richtext"
	TypeSimpleRichText = "simple_richtext"
	TypeCards          = "card"
	TypeCTA            = "cta"
)

// DefaultButtonText is used when a call-to-action block leaves its button label empty.
const DefaultButtonText = "Learn More"

var (
	ErrUnknownBlockType    = errors.New("unknown block type")
	ErrBlockTypeNotAllowed = errors.New("block type not allowed in this column")
	ErrInvalidBlock        = errors.New("invalid block value")
)

// Definition describes one entry of the block registry.
type Definition struct {
	Type     string
	Label    string
	Icon     string
	Template string
	// Features restricts the rich text editor. Empty means the full feature set.
	Features []string
}

var registry = map[string]Definition{
	TypeTitleAndText: {
		Type:     TypeTitleAndText,
		Label:    "Title & Text",
		Icon:     "edit",
		Template: "title_and_text_block",
	},
	TypeFullRichText: {
		Type:     TypeFullRichText,
		Label:    "Full RichText",
		Icon:     "doc-full",
		Template: "richtext_block",
	},
	TypeSimpleRichText: {
		Type:     TypeSimpleRichText,
		Label:    "Simple RichText",
		Icon:     "doc-empty",
		Template: "richtext_block",
		Features: []string{FeatureBold, FeatureItalic, FeatureLink},
	},
	TypeCards: {
		Type:     TypeCards,
		Label:    "Cards",
		Icon:     "placeholder",
		Template: "card_block",
	},
	TypeCTA: {
		Type:     TypeCTA,
		Label:    "Call to Action",
		Icon:     "placeholder",
		Template: "cta_block",
		Features: []string{FeatureBold, FeatureItalic},
	},
}

// Lookup returns the registry entry for a block type.
func Lookup(blockType string) (Definition, bool) {
	def, ok := registry[blockType]
	return def, ok
}

// Types lists every registered block type in a stable order.
func Types() []string {
	types := make([]string, 0, len(registry))
	for key := range registry {
		types = append(types, key)
	}
	sort.Strings(types)
	return types
}

// Block is one typed unit of a content column.
type Block struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// TitleAndText is a heading with a plain text paragraph.
type TitleAndText struct {
	Title string `json:"title" validate:"required"`
	Text  string `json:"text" validate:"required"`
}

// RichText is markdown source rendered with the feature set of its block type.
type RichText string

// Card is a single entry of a card grid.
type Card struct {
	Image      uint   `json:"image" validate:"required"`
	Title      string `json:"title" validate:"required,max=40"`
	Text       string `json:"text" validate:"required,max=200"`
	ButtonPage *uint  `json:"button_page,omitempty"`
	ButtonURL  string `json:"button_url,omitempty" validate:"omitempty,url"`
}

// Target resolves the card button; the page reference wins over the URL.
func (c Card) Target() Target {
	return resolveTarget(c.ButtonPage, c.ButtonURL)
}

// CardGrid is a titled list of cards.
type CardGrid struct {
	Title string `json:"title" validate:"required"`
	Cards []Card `json:"cards" validate:"dive"`
}

// CallToAction is a short pitch with a single button.
type CallToAction struct {
	Title      string `json:"title" validate:"required,max=60"`
	Text       string `json:"text" validate:"required"`
	ButtonPage *uint  `json:"button_page,omitempty"`
	ButtonURL  string `json:"button_url,omitempty" validate:"omitempty,url"`
	ButtonText string `json:"button_text" validate:"required,max=40"`
}

// Target resolves the CTA button; the page reference wins over the URL.
func (c CallToAction) Target() Target {
	return resolveTarget(c.ButtonPage, c.ButtonURL)
}

// Target is a resolved page-or-URL choice.
type Target struct {
	PageID uint
	URL    string
}

// Empty reports whether neither a page nor a URL was chosen.
func (t Target) Empty() bool {
	return t.PageID == 0 && t.URL == ""
}

func resolveTarget(page *uint, url string) Target {
	if page != nil && *page != 0 {
		return Target{PageID: *page}
	}
	return Target{URL: strings.TrimSpace(url)}
}

// Decode returns the typed value of the block.
func (b Block) Decode() (any, error) {
	var err error
	switch b.Type {
	case TypeTitleAndText:
		var v TitleAndText
		if err = decodeValue(b, &v); err == nil {
			return v, nil
		}
	case TypeFullRichText, TypeSimpleRichText:
		var v RichText
		if err = decodeValue(b, &v); err == nil {
			return v, nil
		}
	case TypeCards:
		var v CardGrid
		if err = decodeValue(b, &v); err == nil {
			return v, nil
		}
	case TypeCTA:
		var v CallToAction
		if err = decodeValue(b, &v); err == nil {
			return v, nil
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBlockType, b.Type)
	}
	return nil, err
}

func decodeValue(b Block, dst any) error {
	if len(b.Value) == 0 {
		return fmt.Errorf("%w: %s block has no value", ErrInvalidBlock, b.Type)
	}
	if err := json.Unmarshal(b.Value, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBlock, b.Type, err)
	}
	return nil
}

// NewBlock encodes a typed value into a block with a fresh id.
func NewBlock(blockType string, value any) (Block, error) {
	if _, ok := registry[blockType]; !ok {
		return Block{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return Block{}, err
	}
	return Block{ID: uuid.NewString(), Type: blockType, Value: raw}, nil
}

// Column is the ordered sequence of blocks making up a page body.
type Column []Block

// ParseColumn decodes a stored content column. Empty input yields an empty column.
func ParseColumn(raw []byte) (Column, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Column{}, nil
	}
	var col Column
	if err := json.Unmarshal([]byte(trimmed), &col); err != nil {
		return nil, fmt.Errorf("parse content column: %w", err)
	}
	return col, nil
}

// JSON encodes the column for storage.
func (c Column) JSON() (datatypes.JSON, error) {
	if c == nil {
		c = Column{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// Prepare assigns missing block ids, fills defaults and validates every block
// against the column's allowed types. It never mutates the receiver.
func (c Column) Prepare(allowed ...string) (Column, error) {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	out := make(Column, 0, len(c))
	for idx, block := range c {
		if _, ok := registry[block.Type]; !ok {
			return nil, fmt.Errorf("block %d: %w: %q", idx, ErrUnknownBlockType, block.Type)
		}
		if len(allowedSet) > 0 {
			if _, ok := allowedSet[block.Type]; !ok {
				return nil, fmt.Errorf("block %d: %w: %q", idx, ErrBlockTypeNotAllowed, block.Type)
			}
		}
		if strings.TrimSpace(block.ID) == "" {
			block.ID = uuid.NewString()
		}

		value, err := block.Decode()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", idx, err)
		}
		if cta, ok := value.(CallToAction); ok && strings.TrimSpace(cta.ButtonText) == "" {
			cta.ButtonText = DefaultButtonText
			raw, err := json.Marshal(cta)
			if err != nil {
				return nil, err
			}
			block.Value = raw
			value = cta
		}
		if err := validateValue(value); err != nil {
			return nil, fmt.Errorf("block %d (%s): %w", idx, block.Type, err)
		}
		out = append(out, block)
	}
	return out, nil
}

// ImageIDs lists every image shown by card blocks, in column order.
func (c Column) ImageIDs() []uint {
	var ids []uint
	for _, block := range c {
		value, err := block.Decode()
		if err != nil {
			continue
		}
		if grid, ok := value.(CardGrid); ok {
			for _, card := range grid.Cards {
				if card.Image != 0 {
					ids = append(ids, card.Image)
				}
			}
		}
	}
	return ids
}

// PageIDs lists every page referenced by card or CTA buttons, in column order.
func (c Column) PageIDs() []uint {
	var ids []uint
	for _, block := range c {
		value, err := block.Decode()
		if err != nil {
			continue
		}
		switch v := value.(type) {
		case CardGrid:
			for _, card := range v.Cards {
				if t := card.Target(); t.PageID != 0 {
					ids = append(ids, t.PageID)
				}
			}
		case CallToAction:
			if t := v.Target(); t.PageID != 0 {
				ids = append(ids, t.PageID)
			}
		}
	}
	return ids
}
