package render

import "github.com/shanehull/annrelay/internal/types"

// Theme holds the palette and header decoration for one severity.
type Theme struct {
	BackgroundFrom string
	BackgroundTo   string
	Accent         string
	Text           string
	Muted          string
	Icon           string
	Label          string
}

var themes = map[types.Severity]Theme{
	types.SeverityCritical: {
		BackgroundFrom: "#2b0a0f",
		BackgroundTo:   "#5c1119",
		Accent:         "#ff4d5e",
		Text:           "#ffffff",
		Muted:          "#f5c2c7",
		Icon:           "!",
		Label:          "CRITICAL ALERT",
	},
	types.SeverityHigh: {
		BackgroundFrom: "#2a1503",
		BackgroundTo:   "#5a3208",
		Accent:         "#ff9f1c",
		Text:           "#ffffff",
		Muted:          "#fde2bd",
		Icon:           "▲",
		Label:          "HIGH IMPACT",
	},
	types.SeverityMedium: {
		BackgroundFrom: "#0b1d3a",
		BackgroundTo:   "#16386b",
		Accent:         "#4da3ff",
		Text:           "#ffffff",
		Muted:          "#c4dcf7",
		Icon:           "◊",
		Label:          "NOTABLE",
	},
	types.SeverityLow: {
		BackgroundFrom: "#0c2a1f",
		BackgroundTo:   "#15503a",
		Accent:         "#34d399",
		Text:           "#ffffff",
		Muted:          "#c6f0de",
		Icon:           "●",
		Label:          "UPDATE",
	},
	types.SeverityInfo: {
		BackgroundFrom: "#1a1d24",
		BackgroundTo:   "#2e3440",
		Accent:         "#a0aec0",
		Text:           "#ffffff",
		Muted:          "#d8dee9",
		Icon:           "i",
		Label:          "INFO",
	},
}

// ThemeFor returns the theme for s; unknown severities use the info theme.
func ThemeFor(s types.Severity) Theme {
	if t, ok := themes[s]; ok {
		return t
	}
	return themes[types.SeverityInfo]
}
