package ai

import (
	"aifi/core"
	"aifi/lib/sl"
	"aifi/media"
	"aifi/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// PromptFilter may rewrite the final prompt before it is sent
type PromptFilter func(prompt string, post *storage.Post, style string) string

// GeneratedEvent is delivered to observers after the featured image is set
type GeneratedEvent struct {
	Post  *storage.Post
	Asset *storage.Asset
	Url   string
	Image []byte
}

// Observer is notified of every successful generation
type Observer func(ctx context.Context, event GeneratedEvent) error

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, settings *storage.Settings) ([]byte, error)
}

type MediaSink interface {
	Store(postId string, data []byte, opts media.StoreOptions) (*storage.Asset, error)
	SetFeatured(postId, assetId string) error
	URL(asset *storage.Asset) string
}

type Generator struct {
	settings  storage.SettingsStorage
	posts     storage.PostStorage
	client    ImageGenerator
	sink      MediaSink
	log       *slog.Logger
	filters   []PromptFilter
	observers []Observer
}

type GeneratorOption func(*Generator)

func WithPromptFilter(f PromptFilter) GeneratorOption {
	return func(g *Generator) {
		g.filters = append(g.filters, f)
	}
}

func WithObserver(o Observer) GeneratorOption {
	return func(g *Generator) {
		g.observers = append(g.observers, o)
	}
}

func NewGenerator(
	settings storage.SettingsStorage,
	posts storage.PostStorage,
	client ImageGenerator,
	sink MediaSink,
	log *slog.Logger,
	opts ...GeneratorOption,
) *Generator {
	g := &Generator{
		settings: settings,
		posts:    posts,
		client:   client,
		sink:     sink,
		log:      log.With(sl.Module("generator")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe adds an observer after construction
func (g *Generator) Subscribe(o Observer) {
	g.observers = append(g.observers, o)
}

// Generate builds the prompt for a post, calls the provider once, stores the
// image and sets it as the post's featured image. An asset that was stored is
// kept even when a later step fails.
func (g *Generator) Generate(ctx context.Context, req core.GenerationRequest) (*core.GenerationResult, error) {
	log := g.log.With(slog.String("post", req.PostId))

	post, err := g.posts.GetPost(req.PostId)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindInvalidPost, "Invalid post ID.", 0)
		}
		return nil, &APIError{Kind: KindStorage, Message: "Unable to load the post. Please try again.", Err: err}
	}

	settings, err := g.settings.GetSettings()
	if err != nil {
		return nil, &APIError{Kind: KindStorage, Message: "Unable to load plugin settings.", Err: err}
	}
	if settings == nil {
		s := storage.DefaultSettings()
		settings = &s
	}
	if strings.TrimSpace(settings.ApiKey) == "" {
		return nil, newError(KindMissingApiKey, "API key is not configured. Please add your API key in the plugin settings.", 0)
	}

	style := req.Style
	if style == "" {
		style = settings.DefaultStyle
	}
	title := req.Title
	if title == "" {
		title = post.Title
	}

	prompt := BuildPrompt(PromptInput{
		Title:        title,
		CustomPrompt: req.Prompt,
		Style:        style,
		AllowText:    settings.AllowText,
		CustomText:   req.CustomText,
	})
	for _, filter := range g.filters {
		prompt = filter(prompt, post, style)
	}
	log.With(slog.String("style", style), slog.String("prompt", prompt)).Info("generating image")

	image, err := g.client.Generate(ctx, prompt, settings)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			log.With(sl.Kind(string(apiErr.Kind)), slog.Int("status", apiErr.Status)).Error("generation failed")
			return nil, apiErr
		}
		log.Error("generation failed", sl.Err(err))
		return nil, &APIError{Kind: KindConnection, Message: fmt.Sprintf("Connection failed: %s", err), Err: err}
	}

	quality := settings.ImageQuality
	if req.Quality >= storage.MinQuality && req.Quality <= storage.MaxQuality {
		quality = req.Quality
	}
	asset, err := g.sink.Store(post.Id, image, media.StoreOptions{
		Format:  settings.OutputFormat,
		Quality: quality,
		Prompt:  prompt,
	})
	if err != nil {
		log.Error("storing image", sl.Err(err))
		return nil, &APIError{Kind: KindStorage, Message: "Unable to save the generated image to the media library.", Err: err}
	}

	if err = g.sink.SetFeatured(post.Id, asset.Id); err != nil {
		log.With(slog.String("asset", asset.Id)).Error("setting featured image", sl.Err(err))
		return nil, &APIError{Kind: KindStorage, Message: "The image was saved but could not be set as the featured image.", Err: err}
	}
	post.FeaturedImageId = asset.Id

	url := g.sink.URL(asset)
	event := GeneratedEvent{Post: post, Asset: asset, Url: url, Image: image}
	for _, observer := range g.observers {
		if err := observer(ctx, event); err != nil {
			log.Warn("after generate observer", sl.Err(err))
		}
	}

	log.With(slog.String("asset", asset.Id)).Info("featured image set")
	return &core.GenerationResult{
		AssetId: asset.Id,
		Url:     url,
		Prompt:  prompt,
	}, nil
}
