package types

import (
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// FilingRecord is a comma-delimited exchange disclosure split into its fields.
type FilingRecord struct {
	StockCode   string `json:"stockCode"`
	CompanyName string `json:"companyName"`
	FilingType  string `json:"filingType"`
	Subject     string `json:"subject"`
	Timestamp   string `json:"timestamp"`
	Hash        string `json:"hash,omitempty"`
	Filename    string `json:"filename,omitempty"`
	PDFLink     string `json:"pdfLink"`
}

type AnnouncementSource string

const (
	SourceAI       AnnouncementSource = "ai"
	SourceFallback AnnouncementSource = "fallback"
)

// Announcement is the normalized record every input is turned into before rendering.
type Announcement struct {
	Title       string             `json:"title"`
	Summary     string             `json:"summary"`
	Severity    Severity           `json:"severity"`
	StockCode   string             `json:"stockCode,omitempty"`
	CompanyName string             `json:"companyName,omitempty"`
	FilingType  string             `json:"filingType,omitempty"`
	Subject     string             `json:"subject,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Hash        string             `json:"hash,omitempty"`
	PDFLink     string             `json:"pdfLink,omitempty"`
	Tickers     []string           `json:"tickers,omitempty"`
	ShortURL    string             `json:"shortUrl,omitempty"`
	Source      AnnouncementSource `json:"source"`
}

type LinkMetadata struct {
	StockCode   string `json:"stockCode,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	FilingType  string `json:"filingType,omitempty"`
}

type ShortLink struct {
	ShortCode   string       `json:"shortCode"`
	OriginalURL string       `json:"originalUrl"`
	Clicks      int64        `json:"clicks"`
	CreatedAt   time.Time    `json:"createdAt"`
	Metadata    LinkMetadata `json:"metadata"`
}

// Delivery describes one message pushed over the outbound channel.
type Delivery struct {
	JID          string        `json:"jid"`
	MessageID    string        `json:"messageId"`
	Timestamp    time.Time     `json:"timestamp"`
	Kind         string        `json:"kind"`
	Announcement *Announcement `json:"announcement,omitempty"`
}
