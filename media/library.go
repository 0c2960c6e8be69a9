package media

import (
	"aifi/imageconv"
	"aifi/lib/sl"
	"aifi/storage"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type StoreOptions struct {
	Format  string
	Quality int
	Prompt  string
}

// Library stores generated images on disk and records them as assets
type Library struct {
	dir     string
	baseURL string
	assets  storage.AssetStorage
	posts   storage.PostStorage
	log     *slog.Logger
	now     func() time.Time
}

func NewLibrary(dir, baseURL string, assets storage.AssetStorage, posts storage.PostStorage, log *slog.Logger) *Library {
	return &Library{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		assets:  assets,
		posts:   posts,
		log:     log.With(sl.Module("media")),
		now:     time.Now,
	}
}

// Store converts data to the requested format and saves it as a new asset of postId
func (l *Library) Store(postId string, data []byte, opts StoreOptions) (*storage.Asset, error) {
	converted, err := imageconv.Convert(data, opts.Format, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("converting image: %w", err)
	}

	id := uuid.NewString()
	now := l.now()
	rel := filepath.Join(now.Format("2006"), now.Format("01"),
		fmt.Sprintf("ai-generated-%s-%s.%s", safeName(postId), id[:8], converted.Ext))
	abs := filepath.Join(l.dir, rel)

	if err = os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	if err = os.WriteFile(abs, converted.Data, 0o644); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}

	asset := &storage.Asset{
		Id:        id,
		PostId:    postId,
		FileName:  filepath.Base(rel),
		Path:      rel,
		MimeType:  converted.MimeType,
		Format:    converted.Format,
		Size:      len(converted.Data),
		Prompt:    opts.Prompt,
		CreatedAt: now,
	}
	if err = l.assets.SaveAsset(asset); err != nil {
		// the file stays on disk, nothing references it
		return nil, fmt.Errorf("recording asset: %w", err)
	}

	l.log.With(
		slog.String("post", postId),
		slog.String("asset", id),
		slog.String("format", converted.Format),
		slog.Int("size", asset.Size),
	).Info("image stored")
	return asset, nil
}

func (l *Library) SetFeatured(postId, assetId string) error {
	return l.posts.SetFeaturedImage(postId, assetId)
}

func (l *Library) URL(asset *storage.Asset) string {
	return l.baseURL + "/media/" + asset.Id
}

// Open returns the asset record and the absolute path of its file
func (l *Library) Open(id string) (*storage.Asset, string, error) {
	asset, err := l.assets.GetAsset(id)
	if err != nil {
		return nil, "", err
	}
	return asset, filepath.Join(l.dir, asset.Path), nil
}

func (l *Library) PostAssets(postId string) ([]storage.Asset, error) {
	return l.assets.ListPostAssets(postId)
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}
