/*
Package ai turns raw announcement text into a normalized announcement using the
Gemini API, falling back to deterministic classification whenever the call
cannot be made or its answer cannot be used.
*/
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shanehull/annrelay/internal/filing"
	"github.com/shanehull/annrelay/internal/types"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	defaultTimeout = 20 * time.Second
)

// generator is the subset of the genai models service used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type enhancedAnnouncement struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Severity string   `json:"severity"`
	Tickers  []string `json:"tickers"`
}

type Enhancer struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Enhancer)

func WithTimeout(d time.Duration) Option {
	return func(e *Enhancer) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEnhancer creates an enhancer. An empty apiKey yields an enhancer that
// always uses the deterministic fallback.
func NewEnhancer(ctx context.Context, apiKey, model string, logger *zap.Logger, opts ...Option) (*Enhancer, error) {
	if model == "" {
		model = DefaultModel
	}
	e := &Enhancer{model: model, timeout: defaultTimeout, logger: logger}
	for _, opt := range opts {
		opt(e)
	}

	if apiKey == "" {
		logger.Warn("gemini API key not set, announcements will use fallback classification")
		return e, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	e.models = client.Models
	return e, nil
}

func (e *Enhancer) Enabled() bool {
	return e.models != nil
}

// Enhance always returns a populated announcement.
func (e *Enhancer) Enhance(ctx context.Context, raw string) types.Announcement {
	rec, structured := filing.ParseBSEData(raw)

	if e.models == nil {
		return filing.FallbackAnnouncement(raw)
	}

	ann, err := e.generate(ctx, raw, rec, structured)
	if err != nil {
		e.logger.Warn("AI enhancement failed, using fallback", zap.Error(err))
		return filing.FallbackAnnouncement(raw)
	}
	return ann
}

func (e *Enhancer) generate(ctx context.Context, raw string, rec types.FilingRecord, structured bool) (types.Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text := raw
	if !structured {
		text = filing.StripMarkup(raw)
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: buildUserPrompt(text, rec, structured)}}, Role: "user"},
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    getResponseSchema(),
	})
	if err != nil {
		return types.Announcement{}, fmt.Errorf("gemini API call failed: %w", err)
	}

	respText := resp.Text()

	var out enhancedAnnouncement
	if err := json.Unmarshal([]byte(stripCodeFence(respText)), &out); err != nil {
		return types.Announcement{}, fmt.Errorf("failed to unmarshal gemini JSON response: %w. Raw text: %s", err, respText)
	}

	severity := types.Severity(strings.ToLower(strings.TrimSpace(out.Severity)))
	if !severity.Valid() {
		return types.Announcement{}, fmt.Errorf("gemini returned unknown severity %q", out.Severity)
	}
	if strings.TrimSpace(out.Title) == "" {
		return types.Announcement{}, fmt.Errorf("gemini returned an empty title")
	}

	ann := types.Announcement{
		Title:    strings.TrimSpace(out.Title),
		Summary:  strings.TrimSpace(out.Summary),
		Severity: severity,
		Tickers:  normalizeTickers(out.Tickers),
		Source:   types.SourceAI,
	}
	if structured {
		filing.ApplyRecord(&ann, rec)
	}
	if len(ann.Tickers) == 0 {
		ann.Tickers = filing.ExtractTickers(text)
	}
	return ann, nil
}

func normalizeTickers(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(t, "$")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func getResponseSchema() *genai.Schema {
	severities := make([]string, 0, len(types.Severities))
	for _, s := range types.Severities {
		severities = append(severities, string(s))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "A headline of at most 80 characters.",
			},
			"summary": {
				Type:        genai.TypeString,
				Description: "One or two sentences, at most 200 characters, stating what happened and why it matters to shareholders.",
			},
			"severity": {
				Type:        genai.TypeString,
				Enum:        severities,
				Description: "Urgency of the announcement for an investor holding the stock.",
			},
			"tickers": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Exchange ticker symbols mentioned in the text, without prefixes.",
			},
		},
		Required: []string{"title", "summary", "severity"},
	}
}
