package storage

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Post is a content item that can carry a featured image
type Post struct {
	Id              string    `bson:"_id" json:"id"`
	Title           string    `bson:"title" json:"title"`
	FeaturedImageId string    `bson:"featured_image_id,omitempty" json:"featured_image_id,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// Asset is a stored image file generated for a post
type Asset struct {
	Id        string    `bson:"_id" json:"id"`
	PostId    string    `bson:"post_id" json:"post_id"`
	FileName  string    `bson:"file_name" json:"file_name"`
	Path      string    `bson:"path" json:"-"`
	MimeType  string    `bson:"mime_type" json:"mime_type"`
	Format    string    `bson:"format" json:"format"`
	Size      int       `bson:"size" json:"size"`
	Prompt    string    `bson:"prompt" json:"prompt"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type PostStorage interface {
	// GetPost returns ErrNotFound for unknown ids
	GetPost(id string) (*Post, error)
	SavePost(post *Post) error
	SetFeaturedImage(postId, assetId string) error
	Close() error
}

type AssetStorage interface {
	SaveAsset(asset *Asset) error
	// GetAsset returns ErrNotFound for unknown ids
	GetAsset(id string) (*Asset, error)
	// ListPostAssets returns assets of a post, newest first
	ListPostAssets(postId string) ([]Asset, error)
	Close() error
}
