package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce   sync.Once
	fontsErr    error
	regularFont *truetype.Font
	boldFont    *truetype.Font
)

type faceKey struct {
	size float64
	bold bool
}

func loadFonts() error {
	fontsOnce.Do(func() {
		if regularFont, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse regular font: %w", fontsErr)
			return
		}
		if boldFont, fontsErr = truetype.Parse(gobold.TTF); fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse bold font: %w", fontsErr)
		}
	})
	return fontsErr
}

// faceCache holds the faces of a single rasterization. A truetype face keeps
// its own glyph buffers and must not be shared across goroutines.
type faceCache map[faceKey]font.Face

func (c faceCache) get(size float64, bold bool) font.Face {
	k := faceKey{size: size, bold: bold}
	if f, ok := c[k]; ok {
		return f
	}
	f := regularFont
	if bold {
		f = boldFont
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
	c[k] = face
	return face
}

// PNG rasterizes the scene and encodes it as PNG.
func PNG(s Scene) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}

	faces := make(faceCache)
	dc := gg.NewContext(s.Width, s.Height)

	grad := gg.NewLinearGradient(0, 0, float64(s.Width), float64(s.Height))
	grad.AddColorStop(0, parseHex(s.BackgroundFrom, 1))
	grad.AddColorStop(1, parseHex(s.BackgroundTo, 1))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(s.Width), float64(s.Height))
	dc.Fill()

	for _, e := range s.Elements {
		switch e.Shape {
		case ShapeRect:
			dc.SetColor(parseHex(e.Fill, e.Opacity))
			if e.R > 0 {
				dc.DrawRoundedRectangle(e.X, e.Y, e.W, e.H, e.R)
			} else {
				dc.DrawRectangle(e.X, e.Y, e.W, e.H)
			}
			dc.Fill()
		case ShapeCircle:
			dc.SetColor(parseHex(e.Fill, e.Opacity))
			dc.DrawCircle(e.X, e.Y, e.R)
			dc.Fill()
		case ShapeText:
			dc.SetFontFace(faces.get(e.Size, e.Bold))
			dc.SetColor(parseHex(e.Fill, e.Opacity))
			dc.DrawStringAnchored(e.Text, e.X, e.Y, e.Anchor.fraction(), 0)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (a Anchor) fraction() float64 {
	switch a {
	case AnchorMiddle:
		return 0.5
	case AnchorEnd:
		return 1
	default:
		return 0
	}
}

// parseHex converts "#rrggbb" into a colour with the given opacity. Malformed
// values render as opaque white.
func parseHex(hex string, opacity float64) color.NRGBA {
	c := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 6 {
		if v, err := strconv.ParseUint(h, 16, 32); err == nil {
			c.R = uint8(v >> 16)
			c.G = uint8(v >> 8)
			c.B = uint8(v)
		}
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(opacity*255 + 0.5)
	return c
}
