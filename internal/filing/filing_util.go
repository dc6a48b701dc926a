package filing

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	inlineSpaceRe = regexp.MustCompile(`[\t\r\f\v \xA0]+`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
	tickerRe      = regexp.MustCompile(`(?:\$|\b(?:NSE|BSE):\s*)([A-Z][A-Z0-9&]{0,14})\b`)
	sentenceEndRe = regexp.MustCompile(`[.!?]\s`)
)

var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripMarkup removes HTML tags from text pasted from exchange pages and
// collapses whitespace. Plain text passes through unchanged apart from spacing.
func StripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var sb strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeSpace(sb.String())
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && tt == html.StartTagToken {
				skip++
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		}
	}
}

func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpaceRe.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankLinesRe.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

// ExtractTickers finds $TICKER and NSE:/BSE: symbol mentions in order of appearance.
func ExtractTickers(text string) []string {
	var tickers []string
	seen := make(map[string]bool)
	for _, m := range tickerRe.FindAllStringSubmatch(text, -1) {
		t := m[1]
		if seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	return tickers
}

func splitHeadline(text string) (headline, rest string) {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(strings.ReplaceAll(text[i+1:], "\n", " "))
	}
	if loc := sentenceEndRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]+1]), strings.TrimSpace(text[loc[1]:])
	}
	return text, ""
}

func truncateRunes(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
