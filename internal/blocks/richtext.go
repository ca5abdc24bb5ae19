package blocks

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Rich text editor features.
const (
	FeatureBold   = "bold"
	FeatureItalic = "italic"
	FeatureLink   = "link"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
)

// RenderRichText converts markdown into HTML and strips every element the
// feature set does not allow. A nil feature set keeps the full UGC policy.
func RenderRichText(source string, features []string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	safe := policyFor(features).SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

func policyFor(features []string) *bluemonday.Policy {
	if len(features) == 0 {
		return bluemonday.UGCPolicy()
	}

	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br")
	for _, feature := range features {
		switch feature {
		case FeatureBold:
			policy.AllowElements("strong", "b")
		case FeatureItalic:
			policy.AllowElements("em", "i")
		case FeatureLink:
			policy.AllowStandardURLs()
			policy.AllowAttrs("href").OnElements("a")
		}
	}
	return policy
}
