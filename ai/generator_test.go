package ai

import (
	"aifi/core"
	"aifi/media"
	"aifi/storage"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	prompt   string
	settings *storage.Settings
	image    []byte
	err      error
}

func (f *fakeClient) Generate(_ context.Context, prompt string, settings *storage.Settings) ([]byte, error) {
	f.prompt = prompt
	f.settings = settings
	return f.image, f.err
}

type fakeSink struct {
	stored      []media.StoreOptions
	storeErr    error
	featuredErr error
	featured    string
}

func (f *fakeSink) Store(postId string, data []byte, opts media.StoreOptions) (*storage.Asset, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	f.stored = append(f.stored, opts)
	return &storage.Asset{Id: "asset-1", PostId: postId, Size: len(data)}, nil
}

func (f *fakeSink) SetFeatured(postId, assetId string) error {
	if f.featuredErr != nil {
		return f.featuredErr
	}
	f.featured = assetId
	return nil
}

func (f *fakeSink) URL(asset *storage.Asset) string {
	return "http://media.test/" + asset.Id
}

type generatorFixture struct {
	settings *storage.MemorySettingsStorage
	posts    *storage.MemoryPostStorage
	client   *fakeClient
	sink     *fakeSink
}

func newFixture(t *testing.T, s storage.Settings) *generatorFixture {
	t.Helper()
	f := &generatorFixture{
		settings: storage.NewMemorySettingsStorage(),
		posts:    storage.NewMemoryPostStorage(),
		client:   &fakeClient{image: []byte("img")},
		sink:     &fakeSink{},
	}
	require.NoError(t, f.settings.SaveSettings(&s))
	require.NoError(t, f.posts.SavePost(&storage.Post{Id: "1", Title: "Sunset"}))
	return f
}

func (f *generatorFixture) generator(opts ...GeneratorOption) *Generator {
	return NewGenerator(f.settings, f.posts, f.client, f.sink, discardLogger(), opts...)
}

func animeSettings() storage.Settings {
	s := storage.DefaultSettings()
	s.ApiKey = "k"
	s.DefaultStyle = "anime"
	s.AllowText = false
	return s
}

func TestGenerateSuccess(t *testing.T) {
	f := newFixture(t, animeSettings())
	var events []GeneratedEvent
	g := f.generator(WithObserver(func(_ context.Context, e GeneratedEvent) error {
		events = append(events, e)
		return errors.New("observer errors are only logged")
	}))

	res, err := g.Generate(context.Background(), core.GenerationRequest{PostId: "1"})
	require.NoError(t, err)

	want := "Sunset in detailed anime style no text, no captions, no words, no letters, no writing"
	assert.Equal(t, want, f.client.prompt)
	assert.Equal(t, want, res.Prompt)
	assert.Equal(t, "asset-1", res.AssetId)
	assert.Equal(t, "http://media.test/asset-1", res.Url)
	assert.Equal(t, "asset-1", f.sink.featured)

	require.Len(t, f.sink.stored, 1)
	assert.Equal(t, storage.FormatWebp, f.sink.stored[0].Format)
	assert.Equal(t, 90, f.sink.stored[0].Quality)

	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].Post.Id)
	assert.Equal(t, "asset-1", events[0].Post.FeaturedImageId)
	assert.Equal(t, []byte("img"), events[0].Image)
}

func TestGenerateOverrides(t *testing.T) {
	f := newFixture(t, animeSettings())
	g := f.generator(WithPromptFilter(func(prompt string, post *storage.Post, style string) string {
		return prompt + " [" + post.Id + "/" + style + "]"
	}))

	_, err := g.Generate(context.Background(), core.GenerationRequest{
		PostId:  "1",
		Title:   "Custom",
		Prompt:  "over mountains",
		Style:   "none",
		Quality: 40,
	})
	require.NoError(t, err)

	assert.Equal(t, "Custom - over mountains no text, no captions, no words, no letters, no writing [1/none]", f.client.prompt)
	assert.Equal(t, 40, f.sink.stored[0].Quality)
}

func TestGenerateUnknownStyleFallsBackToRealistic(t *testing.T) {
	f := newFixture(t, animeSettings())

	_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "1", Style: "baroque"})
	require.NoError(t, err)
	assert.Equal(t, "Sunset in a realistic, photographic style no text, no captions, no words, no letters, no writing", f.client.prompt)
}

func TestGenerateIgnoresOutOfRangeQuality(t *testing.T) {
	f := newFixture(t, animeSettings())

	_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "1", Quality: 500})
	require.NoError(t, err)
	assert.Equal(t, 90, f.sink.stored[0].Quality)
}

func TestGenerateFailures(t *testing.T) {
	t.Run("unknown post", func(t *testing.T) {
		f := newFixture(t, animeSettings())
		_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "404"})
		requireKind(t, err, KindInvalidPost)
		assert.Empty(t, f.client.prompt, "provider not called")
	})

	t.Run("missing api key", func(t *testing.T) {
		f := newFixture(t, storage.DefaultSettings())
		_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "1"})
		requireKind(t, err, KindMissingApiKey)
	})

	t.Run("provider error passes through", func(t *testing.T) {
		f := newFixture(t, animeSettings())
		f.client.err = Classify(429, "slow down")
		_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "1"})
		requireKind(t, err, KindRateLimit)
		assert.Empty(t, f.sink.stored)
	})

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture(t, animeSettings())
		f.sink.storeErr = errors.New("disk full")
		_, err := f.generator().Generate(context.Background(), core.GenerationRequest{PostId: "1"})
		apiErr := requireKind(t, err, KindStorage)
		assert.ErrorContains(t, apiErr.Err, "disk full")
	})

	t.Run("featured failure keeps asset", func(t *testing.T) {
		f := newFixture(t, animeSettings())
		f.sink.featuredErr = errors.New("write failed")
		observed := false
		g := f.generator(WithObserver(func(context.Context, GeneratedEvent) error {
			observed = true
			return nil
		}))
		_, err := g.Generate(context.Background(), core.GenerationRequest{PostId: "1"})
		requireKind(t, err, KindStorage)
		assert.Len(t, f.sink.stored, 1)
		assert.False(t, observed)
	})
}

func TestGenerateEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	srcImage := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ImageGenerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Sunset in detailed anime style no text, no captions, no words, no letters, no writing", body.Prompt)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(srcImage)}},
		})
	}))
	defer srv.Close()

	s := animeSettings()
	s.OutputFormat = storage.FormatPng
	settings := storage.NewMemorySettingsStorage()
	require.NoError(t, settings.SaveSettings(&s))
	posts := storage.NewMemoryPostStorage()
	require.NoError(t, posts.SavePost(&storage.Post{Id: "1", Title: "Sunset"}))
	assets := storage.NewMemoryAssetStorage()
	lib := media.NewLibrary(t.TempDir(), "http://localhost", assets, posts, discardLogger())

	g := NewGenerator(settings, posts, NewImageClient(srv.URL, 0, discardLogger()), lib, discardLogger())
	res, err := g.Generate(context.Background(), core.GenerationRequest{PostId: "1"})
	require.NoError(t, err)

	post, err := posts.GetPost("1")
	require.NoError(t, err)
	assert.Equal(t, res.AssetId, post.FeaturedImageId)

	_, path, err := lib.Open(res.AssetId)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
