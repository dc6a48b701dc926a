package render

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/shanehull/annrelay/internal/types"
)

const (
	Width  = 1200
	Height = 630

	padding       = 60.0
	contentWidth  = Width - 2*padding
	charWidthEm   = 0.55
	titleSize     = 52.0
	titleLeading  = 62.0
	maxTitleLines = 2
	bodySize      = 28.0
	bodyLeading   = 38.0
	maxBodyLines  = 4
	badgeSize     = 22.0
	maxTickers    = 4
	textureDots   = 100
)

type Shape int

const (
	ShapeRect Shape = iota
	ShapeCircle
	ShapeText
)

type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
	AnchorEnd
)

// Element is one drawable primitive. Rects use X, Y, W, H and R (corner
// radius); circles use X, Y as the centre and R; text uses X, Y as the
// baseline anchor point.
type Element struct {
	Shape   Shape
	X, Y    float64
	W, H    float64
	R       float64
	Fill    string
	Opacity float64
	Text    string
	Size    float64
	Bold    bool
	Anchor  Anchor
}

// Scene is a fully laid out card ready for SVG or raster output.
type Scene struct {
	Width, Height  int
	BackgroundFrom string
	BackgroundTo   string
	Elements       []Element
}

// WrapText splits text into lines that fit maxWidth using an average glyph
// width estimate instead of real font metrics.
func WrapText(text string, maxWidth, fontSize float64) []string {
	maxChars := int(math.Floor(maxWidth / (fontSize * charWidthEm)))
	if maxChars < 1 {
		maxChars = 1
	}

	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > maxChars {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:maxChars]))
			w = w[maxChars:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, w...)
		case len(cur)+1+len(w) <= maxChars:
			cur = append(cur, ' ')
			cur = append(cur, w...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), w...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// ClampLines keeps at most max lines, marking the last kept line with an
// ellipsis when lines were dropped.
func ClampLines(lines []string, max int, maxWidth, fontSize float64) []string {
	if max <= 0 {
		return nil
	}
	if len(lines) <= max {
		return lines
	}
	out := append([]string(nil), lines[:max]...)
	maxChars := int(math.Floor(maxWidth / (fontSize * charWidthEm)))
	if maxChars < 1 {
		maxChars = 1
	}
	last := []rune(strings.TrimRight(out[max-1], " .,;:"))
	if len(last) >= maxChars {
		last = last[:maxChars-1]
	}
	out[max-1] = string(last) + "…"
	return out
}

func estimateWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * charWidthEm
}

func layout(a types.Announcement, rnd *rand.Rand) Scene {
	th := ThemeFor(a.Severity)
	s := Scene{
		Width:          Width,
		Height:         Height,
		BackgroundFrom: th.BackgroundFrom,
		BackgroundTo:   th.BackgroundTo,
	}

	for i := 0; i < textureDots; i++ {
		s.add(Element{
			Shape:   ShapeCircle,
			X:       rnd.Float64() * Width,
			Y:       rnd.Float64() * Height,
			R:       1 + rnd.Float64()*3,
			Fill:    "#ffffff",
			Opacity: 0.03 + rnd.Float64()*0.07,
		})
	}

	s.add(Element{Shape: ShapeRect, X: 0, Y: 0, W: 12, H: Height, Fill: th.Accent, Opacity: 1})

	// Header: icon disc and severity label.
	s.add(Element{Shape: ShapeCircle, X: padding + 30, Y: 100, R: 30, Fill: th.Accent, Opacity: 1})
	s.add(Element{Shape: ShapeText, X: padding + 30, Y: 111, Text: th.Icon, Size: 32, Bold: true, Fill: th.BackgroundFrom, Opacity: 1, Anchor: AnchorMiddle})
	s.add(Element{Shape: ShapeText, X: padding + 80, Y: 110, Text: th.Label, Size: 26, Bold: true, Fill: th.Accent, Opacity: 1})

	if a.Severity == types.SeverityCritical {
		const w, h = 180.0, 48.0
		x := Width - padding - w
		s.add(Element{Shape: ShapeRect, X: x, Y: 76, W: w, H: h, R: h / 2, Fill: th.Accent, Opacity: 1})
		s.add(Element{Shape: ShapeText, X: x + w/2, Y: 108, Text: "URGENT", Size: 24, Bold: true, Fill: "#ffffff", Opacity: 1, Anchor: AnchorMiddle})
	}

	y := 150.0
	if company := companyLine(a); company != "" {
		y += 30
		s.add(Element{Shape: ShapeText, X: padding, Y: y, Text: company, Size: 26, Fill: th.Muted, Opacity: 1})
		y += 20
	}

	title := ClampLines(WrapText(a.Title, contentWidth, titleSize), maxTitleLines, contentWidth, titleSize)
	for _, line := range title {
		y += titleLeading
		s.add(Element{Shape: ShapeText, X: padding, Y: y, Text: line, Size: titleSize, Bold: true, Fill: th.Text, Opacity: 1})
	}

	y += 16
	body := ClampLines(WrapText(a.Summary, contentWidth, bodySize), maxBodyLines, contentWidth, bodySize)
	for _, line := range body {
		y += bodyLeading
		s.add(Element{Shape: ShapeText, X: padding, Y: y, Text: line, Size: bodySize, Fill: th.Muted, Opacity: 1})
	}

	// Bottom row: filing type badge, ticker badges, document button. Badges
	// stop short of the button.
	const rowY, rowH = 520.0, 44.0
	const buttonW, buttonH = 260.0, 56.0
	link := documentLink(a)
	limit := float64(Width - padding)
	if link != "" {
		limit = Width - padding - buttonW - 12
	}

	x := padding
	var badges []badgeSpec
	if a.FilingType != "" {
		badges = append(badges, badgeSpec{strings.ToUpper(a.FilingType), th.Accent, th.BackgroundFrom, 1})
	}
	tickers := a.Tickers
	if len(tickers) > maxTickers {
		tickers = tickers[:maxTickers]
	}
	for _, t := range tickers {
		badges = append(badges, badgeSpec{"$" + t, "#ffffff", th.Text, 0.15})
	}
	for _, b := range badges {
		if x+badgeWidth(b.text) > limit {
			break
		}
		x = s.badge(x, rowY, rowH, b)
	}

	if link != "" {
		bx := Width - padding - buttonW
		s.add(Element{Shape: ShapeRect, X: bx, Y: rowY - 6, W: buttonW, H: buttonH, R: 12, Fill: th.Accent, Opacity: 1})
		s.add(Element{Shape: ShapeText, X: bx + buttonW/2, Y: rowY + 30, Text: "View document →", Size: 24, Bold: true, Fill: "#ffffff", Opacity: 1, Anchor: AnchorMiddle})
	}

	if a.Timestamp != "" {
		s.add(Element{Shape: ShapeText, X: padding, Y: Height - 30, Text: a.Timestamp, Size: 20, Fill: th.Muted, Opacity: 0.8})
	}
	return s
}

func (s *Scene) add(e Element) {
	s.Elements = append(s.Elements, e)
}

type badgeSpec struct {
	text, fill, textFill string
	opacity              float64
}

func badgeWidth(text string) float64 {
	return estimateWidth(text, badgeSize) + 32
}

// badge draws a pill-shaped label at x and returns the x for the next badge.
func (s *Scene) badge(x, y, h float64, b badgeSpec) float64 {
	w := badgeWidth(b.text)
	s.add(Element{Shape: ShapeRect, X: x, Y: y, W: w, H: h, R: h / 2, Fill: b.fill, Opacity: b.opacity})
	s.add(Element{Shape: ShapeText, X: x + w/2, Y: y + h/2 + badgeSize*0.35, Text: b.text, Size: badgeSize, Bold: true, Fill: b.textFill, Opacity: 1, Anchor: AnchorMiddle})
	return x + w + 12
}

func companyLine(a types.Announcement) string {
	switch {
	case a.CompanyName != "" && a.StockCode != "":
		return a.CompanyName + " · " + a.StockCode
	default:
		return a.CompanyName
	}
}

func documentLink(a types.Announcement) string {
	if a.ShortURL != "" {
		return a.ShortURL
	}
	return a.PDFLink
}
