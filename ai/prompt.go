package ai

import (
	"strings"

	"aifi/storage"
)

const (
	noTextClause = " no text, no captions, no words, no letters, no writing"
	// separator the CMS appends before site names in generated titles
	titleSuffixSeparator = "·"
)

var stylePhrases = map[string]string{
	"realistic":   "in a realistic, photographic style",
	"artistic":    "in an artistic, painterly style",
	"cartoon":     "in a cartoon, animated style",
	"sketch":      "in a detailed sketch style",
	"watercolor":  "in a beautiful watercolor painting style",
	"3d":          "as a high-quality 3D render",
	"pixel":       "in retro pixel art style",
	"cyberpunk":   "in a vibrant cyberpunk style",
	"fantasy":     "in a magical fantasy art style",
	"anime":       "in detailed anime style",
	"minimalist":  "in a clean minimalist style",
	"technicolor": "in vivid technicolor style",
}

type PromptInput struct {
	Title        string
	CustomPrompt string
	Style        string
	AllowText    bool
	CustomText   string
}

// StylePhrase returns the phrase for a style key, unknown keys map to realistic
func StylePhrase(style string) string {
	if p, ok := stylePhrases[style]; ok {
		return p
	}
	return stylePhrases[storage.StyleRealistic]
}

// BuildPrompt composes the text sent to the image model
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString(in.Title)
	if in.CustomPrompt != "" {
		b.WriteString(" - ")
		b.WriteString(in.CustomPrompt)
	}

	if in.Style != storage.StyleNone {
		b.WriteString(" ")
		b.WriteString(StylePhrase(in.Style))
	}

	if !in.AllowText {
		b.WriteString(noTextClause)
		return b.String()
	}

	text := in.CustomText
	if text == "" {
		text = in.Title
	}
	text, _, _ = strings.Cut(text, titleSuffixSeparator)
	b.WriteString(` please add the "`)
	b.WriteString(strings.TrimSpace(text))
	b.WriteString(`" text on the image`)
	return b.String()
}
