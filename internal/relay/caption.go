package relay

import (
	"fmt"
	"strings"

	"github.com/shanehull/annrelay/internal/render"
	"github.com/shanehull/annrelay/internal/types"
)

var severityEmoji = map[types.Severity]string{
	types.SeverityCritical: "🚨",
	types.SeverityHigh:     "🔴",
	types.SeverityMedium:   "🟠",
	types.SeverityLow:      "🔵",
	types.SeverityInfo:     "ℹ️",
}

// BuildCaption formats the text sent alongside the announcement card. It
// uses WhatsApp's *bold* and _italic_ markers.
func BuildCaption(a types.Announcement) string {
	theme := render.ThemeFor(a.Severity)
	emoji, ok := severityEmoji[a.Severity]
	if !ok {
		emoji = severityEmoji[types.SeverityInfo]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *%s*\n", emoji, theme.Label))
	sb.WriteString(fmt.Sprintf("*%s*\n", strings.TrimSpace(a.Title)))

	if s := strings.TrimSpace(a.Summary); s != "" {
		sb.WriteString("\n" + s + "\n")
	}

	var meta []string
	switch {
	case a.CompanyName != "" && a.StockCode != "":
		meta = append(meta, fmt.Sprintf("🏢 %s (%s)", a.CompanyName, a.StockCode))
	case a.CompanyName != "":
		meta = append(meta, "🏢 "+a.CompanyName)
	case a.StockCode != "":
		meta = append(meta, "🏢 "+a.StockCode)
	}
	if a.FilingType != "" {
		meta = append(meta, "📄 _"+a.FilingType+"_")
	}
	if len(a.Tickers) > 0 {
		tags := make([]string, len(a.Tickers))
		for i, t := range a.Tickers {
			tags[i] = "$" + t
		}
		meta = append(meta, "🏷️ "+strings.Join(tags, " "))
	}

	link := a.ShortURL
	if link == "" {
		link = a.PDFLink
	}
	if link != "" {
		meta = append(meta, "🔗 "+link)
	}

	if len(meta) > 0 {
		sb.WriteString("\n" + strings.Join(meta, "\n"))
	}

	return strings.TrimRight(sb.String(), "\n")
}
