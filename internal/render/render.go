/*
Package render draws a normalized announcement as a 1200x630 share card. The
card is laid out once as a scene of primitives which can be written as an SVG
document or rasterized to PNG.
*/
package render

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shanehull/annrelay/internal/types"
)

type Renderer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Renderer)

// WithSeed fixes the texture layer so output is reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Renderer) {
		r.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func New(opts ...Option) *Renderer {
	now := uint64(time.Now().UnixNano())
	r := &Renderer{rnd: rand.New(rand.NewPCG(now, now>>1))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout builds the scene for a. Everything except the texture dots is a pure
// function of a.
func (r *Renderer) Layout(a types.Announcement) Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return layout(a, r.rnd)
}

// Render returns the announcement card as PNG bytes.
func (r *Renderer) Render(a types.Announcement) ([]byte, error) {
	return PNG(r.Layout(a))
}

func (r *Renderer) RenderSVG(a types.Announcement) []byte {
	return SVG(r.Layout(a))
}
