package storage

import (
	"sort"
	"sync"
	"time"
)

type MemoryPostStorage struct {
	posts map[string]*Post
	mutex sync.RWMutex
}

func NewMemoryPostStorage() *MemoryPostStorage {
	return &MemoryPostStorage{
		posts: make(map[string]*Post),
	}
}

func (m *MemoryPostStorage) GetPost(id string) (*Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := *post
	return &p, nil
}

func (m *MemoryPostStorage) SavePost(post *Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	p := *post
	if existing, ok := m.posts[post.Id]; ok {
		p.CreatedAt = existing.CreatedAt
		if p.FeaturedImageId == "" {
			p.FeaturedImageId = existing.FeaturedImageId
		}
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.posts[post.Id] = &p
	return nil
}

func (m *MemoryPostStorage) SetFeaturedImage(postId, assetId string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post, ok := m.posts[postId]
	if !ok {
		return ErrNotFound
	}
	post.FeaturedImageId = assetId
	post.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryPostStorage) Close() error {
	return nil
}

type MemoryAssetStorage struct {
	assets map[string]*Asset
	mutex  sync.RWMutex
}

func NewMemoryAssetStorage() *MemoryAssetStorage {
	return &MemoryAssetStorage{
		assets: make(map[string]*Asset),
	}
}

func (m *MemoryAssetStorage) SaveAsset(asset *Asset) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	a := *asset
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.assets[a.Id] = &a
	return nil
}

func (m *MemoryAssetStorage) GetAsset(id string) (*Asset, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	asset, ok := m.assets[id]
	if !ok {
		return nil, ErrNotFound
	}
	a := *asset
	return &a, nil
}

func (m *MemoryAssetStorage) ListPostAssets(postId string) ([]Asset, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var assets []Asset
	for _, a := range m.assets {
		if a.PostId == postId {
			assets = append(assets, *a)
		}
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
	return assets, nil
}

func (m *MemoryAssetStorage) Close() error {
	return nil
}
