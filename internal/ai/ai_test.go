package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shanehull/annrelay/internal/types"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int
	last  []*genai.Content
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.last = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}, Role: "model"}},
		},
	}, nil
}

func newTestEnhancer(g generator) *Enhancer {
	return &Enhancer{models: g, model: "test-model", timeout: time.Second, logger: zap.NewNop()}
}

const bseRecord = "500325,Reliance,Result,Q3 Results,2024-01-10,abc,file.pdf,http://x/y.pdf"

func TestEnhance_NoKeyUsesFallback(t *testing.T) {
	e, err := NewEnhancer(context.Background(), "", "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, e.Enabled())

	ann := e.Enhance(context.Background(), bseRecord)

	assert.Equal(t, types.SourceFallback, ann.Source)
	assert.Equal(t, types.SeverityHigh, ann.Severity)
	assert.Equal(t, "Q3 Results", ann.Title)
}

func TestEnhance_AIResponseMergesRecord(t *testing.T) {
	g := &fakeGenerator{text: `{"title":"Reliance posts Q3 results","summary":"Net profit up 10%.","severity":"HIGH","tickers":["$reliance","RELIANCE"]}`}
	e := newTestEnhancer(g)

	ann := e.Enhance(context.Background(), bseRecord)

	assert.Equal(t, 1, g.calls)
	assert.Equal(t, types.SourceAI, ann.Source)
	assert.Equal(t, "Reliance posts Q3 results", ann.Title)
	assert.Equal(t, types.SeverityHigh, ann.Severity)
	assert.Equal(t, []string{"RELIANCE"}, ann.Tickers)
	assert.Equal(t, "500325", ann.StockCode)
	assert.Equal(t, "http://x/y.pdf", ann.PDFLink)
	assert.Contains(t, g.last[0].Parts[0].Text, "Company: Reliance")
}

func TestEnhance_CodeFencedJSON(t *testing.T) {
	g := &fakeGenerator{text: "```json\n{\"title\":\"AGM on 5 May\",\"summary\":\"Notice of AGM.\",\"severity\":\"medium\"}\n```"}
	ann := newTestEnhancer(g).Enhance(context.Background(), "Notice of AGM to be held on 5 May")

	assert.Equal(t, types.SourceAI, ann.Source)
	assert.Equal(t, types.SeverityMedium, ann.Severity)
}

func TestEnhance_FallbackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"api error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"malformed json", &fakeGenerator{text: "not json"}},
		{"unknown severity", &fakeGenerator{text: `{"title":"x","summary":"y","severity":"urgent"}`}},
		{"empty title", &fakeGenerator{text: `{"title":" ","summary":"y","severity":"low"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann := newTestEnhancer(tt.gen).Enhance(context.Background(), "Insider Trading disclosure by promoter")

			assert.Equal(t, types.SourceFallback, ann.Source)
			assert.Equal(t, types.SeverityCritical, ann.Severity)
			assert.NotEmpty(t, ann.Title)
		})
	}
}

func TestLoadingSteps(t *testing.T) {
	g := &fakeGenerator{text: `["Fetching balance sheets","Comparing margins","Scoring peers","Drafting the summary"," "]`}
	steps := newTestEnhancer(g).LoadingSteps(context.Background(), "IT services peers")

	assert.Equal(t, []string{"Fetching balance sheets", "Comparing margins", "Scoring peers", "Drafting the summary"}, steps)
}

func TestLoadingSteps_Fallback(t *testing.T) {
	tooFew := &fakeGenerator{text: `["one","two"]`}
	assert.Equal(t, DefaultLoadingSteps(), newTestEnhancer(tooFew).LoadingSteps(context.Background(), "x"))

	disabled := &Enhancer{logger: zap.NewNop()}
	assert.Equal(t, DefaultLoadingSteps(), disabled.LoadingSteps(context.Background(), "x"))
}
