package storage

import (
	"slices"
	"strings"
	"unicode"
)

const (
	SizeSquare    = "1024x1024"
	SizePortrait  = "1024x1536"
	SizeLandscape = "1536x1024"

	StyleNone      = "none"
	StyleRealistic = "realistic"

	FormatWebp = "webp"
	FormatPng  = "png"
	FormatJpeg = "jpeg"

	ModelImage1     = "gpt-image-1"
	ModelImage1Mini = "gpt-image-1-mini"

	MinQuality = 1
	MaxQuality = 100

	keyMask = "********"
)

var (
	Sizes   = []string{SizeSquare, SizePortrait, SizeLandscape}
	Formats = []string{FormatWebp, FormatPng, FormatJpeg}
	Models  = []string{ModelImage1, ModelImage1Mini}
	Styles  = []string{
		StyleNone, StyleRealistic, "artistic", "cartoon", "sketch", "watercolor", "3d",
		"pixel", "cyberpunk", "fantasy", "anime", "minimalist", "technicolor",
	}
)

// Settings is the flat configuration record read on every generation
type Settings struct {
	ApiKey       string `bson:"api_key" json:"api_key"`
	DefaultSize  string `bson:"default_size" json:"default_size"`
	DefaultStyle string `bson:"default_style" json:"default_style"`
	AllowText    bool   `bson:"allow_text" json:"allow_text"`
	OutputFormat string `bson:"output_format" json:"output_format"`
	ImageQuality int    `bson:"image_quality" json:"image_quality"`
	AiModel      string `bson:"ai_model" json:"ai_model"`
}

// SettingsInput is a partial update; nil fields keep their current value
type SettingsInput struct {
	ApiKey       *string `json:"api_key"`
	DefaultSize  *string `json:"default_size"`
	DefaultStyle *string `json:"default_style"`
	AllowText    *bool   `json:"allow_text"`
	OutputFormat *string `json:"output_format"`
	ImageQuality *int    `json:"image_quality"`
	AiModel      *string `json:"ai_model"`
}

// SettingsStorage defines the interface for settings persistence
type SettingsStorage interface {
	// GetSettings returns nil when nothing has been saved yet
	GetSettings() (*Settings, error)
	SaveSettings(settings *Settings) error
	Close() error
}

func DefaultSettings() Settings {
	return Settings{
		DefaultSize:  SizeLandscape,
		DefaultStyle: StyleRealistic,
		OutputFormat: FormatWebp,
		ImageQuality: 90,
		AiModel:      ModelImage1,
	}
}

// SanitizeSettings applies the present fields of input on top of current.
// Enumerated values outside their set fall back to a default, quality is clamped.
func SanitizeSettings(current Settings, input SettingsInput) Settings {
	s := current
	// a masked key is the display value echoed back, not a new key
	if input.ApiKey != nil && !strings.Contains(*input.ApiKey, keyMask) {
		s.ApiKey = sanitizeText(*input.ApiKey)
	}
	if input.DefaultSize != nil {
		s.DefaultSize = oneOf(sanitizeText(*input.DefaultSize), Sizes, SizeSquare)
	}
	if input.DefaultStyle != nil {
		s.DefaultStyle = oneOf(sanitizeText(*input.DefaultStyle), Styles, StyleRealistic)
	}
	if input.AllowText != nil {
		s.AllowText = *input.AllowText
	}
	if input.OutputFormat != nil {
		s.OutputFormat = oneOf(*input.OutputFormat, Formats, FormatWebp)
	}
	if input.ImageQuality != nil {
		s.ImageQuality = ClampQuality(*input.ImageQuality)
	}
	if input.AiModel != nil {
		s.AiModel = oneOf(*input.AiModel, Models, ModelImage1)
	}
	return s
}

// Input converts a full record into an update touching every field
func (s Settings) Input() SettingsInput {
	return SettingsInput{
		ApiKey:       &s.ApiKey,
		DefaultSize:  &s.DefaultSize,
		DefaultStyle: &s.DefaultStyle,
		AllowText:    &s.AllowText,
		OutputFormat: &s.OutputFormat,
		ImageQuality: &s.ImageQuality,
		AiModel:      &s.AiModel,
	}
}

// Masked returns a copy safe to show in the settings UI
func (s Settings) Masked() Settings {
	if len(s.ApiKey) > 8 {
		s.ApiKey = s.ApiKey[:3] + keyMask + s.ApiKey[len(s.ApiKey)-4:]
	} else if s.ApiKey != "" {
		s.ApiKey = keyMask
	}
	return s
}

// EnsureSettings stores sanitized defaults when the store is still empty
// and returns the effective record.
func EnsureSettings(store SettingsStorage, defaults Settings) (*Settings, error) {
	existing, err := store.GetSettings()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	s := SanitizeSettings(DefaultSettings(), defaults.Input())
	if err = store.SaveSettings(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func ClampQuality(q int) int {
	return max(MinQuality, min(MaxQuality, q))
}

func oneOf(value string, allowed []string, fallback string) string {
	if slices.Contains(allowed, value) {
		return value
	}
	return fallback
}

func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
