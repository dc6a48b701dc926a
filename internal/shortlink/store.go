package shortlink

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shanehull/annrelay/internal/types"
)

var (
	ErrNotFound    = errors.New("short link not found")
	ErrCodeExists  = errors.New("short code already exists")
	ErrInvalidCode = errors.New("invalid short code")
	ErrInvalidURL  = errors.New("invalid URL")
)

// Store persists short links. Implementations must make IncrementClicks atomic.
type Store interface {
	Create(ctx context.Context, link types.ShortLink) error
	Get(ctx context.Context, code string) (types.ShortLink, error)
	IncrementClicks(ctx context.Context, code string) (int64, error)
	List(ctx context.Context) ([]types.ShortLink, error)
}

// MemoryStore keeps links in process memory; everything is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]types.ShortLink
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]types.ShortLink)}
}

func (m *MemoryStore) Create(_ context.Context, link types.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.links[link.ShortCode]; exists {
		return ErrCodeExists
	}
	m.links[link.ShortCode] = link
	return nil
}

func (m *MemoryStore) Get(_ context.Context, code string) (types.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return types.ShortLink{}, ErrNotFound
	}
	return link, nil
}

func (m *MemoryStore) IncrementClicks(_ context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[code]
	if !ok {
		return 0, ErrNotFound
	}
	link.Clicks++
	m.links[code] = link
	return link.Clicks, nil
}

// List returns all links, newest first.
func (m *MemoryStore) List(_ context.Context) ([]types.ShortLink, error) {
	m.mu.RLock()
	links := make([]types.ShortLink, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	m.mu.RUnlock()

	sortNewestFirst(links)
	return links, nil
}

func sortNewestFirst(links []types.ShortLink) {
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ShortCode < links[j].ShortCode
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
}
