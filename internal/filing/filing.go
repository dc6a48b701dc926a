/*
Package filing parses exchange filing records and classifies announcements
without any external service.
*/
package filing

import (
	"fmt"
	"strings"

	"github.com/shanehull/annrelay/internal/types"
)

const (
	minRecordFields = 8
	maxTitleRunes   = 80
	maxSummaryRunes = 200
)

type severityRule struct {
	severity types.Severity
	keywords []string
}

// Order matters: the first rule with a matching keyword wins.
var severityRules = []severityRule{
	{types.SeverityCritical, []string{"insider trading", "sast", "violation"}},
	{types.SeverityHigh, []string{"result", "acquisition", "merger"}},
	{types.SeverityMedium, []string{"agm", "dividend", "record date"}},
	{types.SeverityLow, []string{"clarification", "update"}},
}

// ParseBSEData splits a comma-delimited filing record. The fixed field order is
// stock code, company name, filing type, subject, timestamp, hash, filename and
// document URL. Inputs with fewer than eight fields are free text and return false.
func ParseBSEData(raw string) (types.FilingRecord, bool) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) < minRecordFields {
		return types.FilingRecord{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	// Subjects may contain commas; the trailing four fields are always fixed.
	n := len(fields)
	subject := strings.Join(fields[3:n-4], ",")

	return types.FilingRecord{
		StockCode:   fields[0],
		CompanyName: fields[1],
		FilingType:  fields[2],
		Subject:     subject,
		Timestamp:   fields[n-4],
		Hash:        fields[n-3],
		Filename:    fields[n-2],
		PDFLink:     fields[n-1],
	}, true
}

// IsStructured reports whether raw would be parsed as a filing record.
func IsStructured(raw string) bool {
	_, ok := ParseBSEData(raw)
	return ok
}

func DetermineImportanceFromType(text string) types.Severity {
	lower := strings.ToLower(text)
	for _, rule := range severityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.severity
			}
		}
	}
	return types.SeverityInfo
}

// FallbackAnnouncement normalizes raw input deterministically. It is used when
// the generative call is unavailable or returns something unusable.
func FallbackAnnouncement(raw string) types.Announcement {
	if rec, ok := ParseBSEData(raw); ok {
		return FromRecord(rec)
	}

	text := StripMarkup(raw)
	title, rest := splitHeadline(text)
	summary := rest
	if summary == "" {
		summary = text
	}

	return types.Announcement{
		Title:    truncateRunes(title, maxTitleRunes),
		Summary:  truncateRunes(summary, maxSummaryRunes),
		Severity: DetermineImportanceFromType(text),
		Tickers:  ExtractTickers(text),
		Source:   types.SourceFallback,
	}
}

// FromRecord builds a fallback announcement from a parsed filing record.
func FromRecord(rec types.FilingRecord) types.Announcement {
	title := rec.Subject
	if title == "" {
		title = rec.FilingType
	}

	var summary string
	switch {
	case rec.CompanyName != "" && rec.FilingType != "":
		summary = fmt.Sprintf("%s has filed a %s disclosure: %s", rec.CompanyName, rec.FilingType, rec.Subject)
	case rec.CompanyName != "":
		summary = fmt.Sprintf("%s: %s", rec.CompanyName, rec.Subject)
	default:
		summary = rec.Subject
	}

	ann := types.Announcement{
		Title:    truncateRunes(title, maxTitleRunes),
		Summary:  truncateRunes(strings.TrimSuffix(strings.TrimSpace(summary), ":"), maxSummaryRunes),
		Severity: recordSeverity(rec),
		Source:   types.SourceFallback,
	}
	ApplyRecord(&ann, rec)
	return ann
}

// recordSeverity classifies on the filing type, consulting the subject only
// when the type alone says nothing.
func recordSeverity(rec types.FilingRecord) types.Severity {
	if sev := DetermineImportanceFromType(rec.FilingType); sev != types.SeverityInfo {
		return sev
	}
	return DetermineImportanceFromType(rec.Subject)
}

// ApplyRecord copies filing metadata onto ann, keeping any metadata already set.
func ApplyRecord(ann *types.Announcement, rec types.FilingRecord) {
	if ann.StockCode == "" {
		ann.StockCode = rec.StockCode
	}
	if ann.CompanyName == "" {
		ann.CompanyName = rec.CompanyName
	}
	if ann.FilingType == "" {
		ann.FilingType = rec.FilingType
	}
	if ann.Subject == "" {
		ann.Subject = rec.Subject
	}
	if ann.Timestamp == "" {
		ann.Timestamp = rec.Timestamp
	}
	if ann.Hash == "" {
		ann.Hash = rec.Hash
	}
	if ann.PDFLink == "" {
		ann.PDFLink = rec.PDFLink
	}
}
