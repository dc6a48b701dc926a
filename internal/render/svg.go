package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const fontFamily = "Go, 'Helvetica Neue', Arial, sans-serif"

// SVG composes the scene into a standalone SVG document.
func SVG(s Scene) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, s.Width, s.Height, s.Width, s.Height)
	b.WriteString(`<defs><linearGradient id="bg" x1="0" y1="0" x2="1" y2="1">`)
	fmt.Fprintf(&b, `<stop offset="0%%" stop-color="%s"/><stop offset="100%%" stop-color="%s"/>`, s.BackgroundFrom, s.BackgroundTo)
	b.WriteString(`</linearGradient></defs>`)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="url(#bg)"/>`, s.Width, s.Height)

	for _, e := range s.Elements {
		switch e.Shape {
		case ShapeRect:
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="%s" fill-opacity="%.2f"/>`,
				e.X, e.Y, e.W, e.H, e.R, e.Fill, e.Opacity)
		case ShapeCircle:
			fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" fill-opacity="%.2f"/>`,
				e.X, e.Y, e.R, e.Fill, e.Opacity)
		case ShapeText:
			weight := "normal"
			if e.Bold {
				weight = "bold"
			}
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="%s" font-size="%.0f" font-weight="%s" fill="%s" fill-opacity="%.2f" text-anchor="%s">`,
				e.X, e.Y, fontFamily, e.Size, weight, e.Fill, e.Opacity, e.Anchor.svg())
			_ = xml.EscapeText(&b, []byte(e.Text))
			b.WriteString(`</text>`)
		}
	}

	b.WriteString(`</svg>`)
	return b.Bytes()
}

func (a Anchor) svg() string {
	switch a {
	case AnchorMiddle:
		return "middle"
	case AnchorEnd:
		return "end"
	default:
		return "start"
	}
}
