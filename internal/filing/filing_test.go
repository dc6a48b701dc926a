package filing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/annrelay/internal/types"
)

func TestParseBSEData(t *testing.T) {
	rec, ok := ParseBSEData("500325,Reliance,Result,Q3 Results,2024-01-10,abc,file.pdf,http://x/y.pdf")
	require.True(t, ok)

	assert.Equal(t, "500325", rec.StockCode)
	assert.Equal(t, "Reliance", rec.CompanyName)
	assert.Equal(t, "Result", rec.FilingType)
	assert.Equal(t, "Q3 Results", rec.Subject)
	assert.Equal(t, "2024-01-10", rec.Timestamp)
	assert.Equal(t, "abc", rec.Hash)
	assert.Equal(t, "file.pdf", rec.Filename)
	assert.Equal(t, "http://x/y.pdf", rec.PDFLink)
}

func TestParseBSEData_SubjectWithCommas(t *testing.T) {
	rec, ok := ParseBSEData("532540, TCS , Board Meeting, Dividend, Buyback and Results ,2024-02-01,h1,f.pdf,https://bse/f.pdf")
	require.True(t, ok)

	assert.Equal(t, "TCS", rec.CompanyName)
	assert.Equal(t, "Dividend,Buyback and Results", rec.Subject)
	assert.Equal(t, "2024-02-01", rec.Timestamp)
	assert.Equal(t, "https://bse/f.pdf", rec.PDFLink)
}

func TestParseBSEData_FreeText(t *testing.T) {
	_, ok := ParseBSEData("Reliance announces Q3 results, beats estimates")
	assert.False(t, ok)

	_, ok = ParseBSEData("a,b,c,d,e,f,g")
	assert.False(t, ok)
}

func TestDetermineImportanceFromType(t *testing.T) {
	tests := []struct {
		in   string
		want types.Severity
	}{
		{"Insider Trading Violation", types.SeverityCritical},
		{"Disclosure under SAST Regulations", types.SeverityCritical},
		{"Financial Results Q3", types.SeverityHigh},
		{"Merger Scheme", types.SeverityHigh},
		{"AGM Notice", types.SeverityMedium},
		{"Record Date for Dividend", types.SeverityMedium},
		{"Routine Update", types.SeverityLow},
		{"Clarification sought", types.SeverityLow},
		{"Miscellaneous", types.SeverityInfo},
		{"", types.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineImportanceFromType(tt.in))
		})
	}
}

func TestDetermineImportanceFromType_PriorityOrder(t *testing.T) {
	// "violation" outranks "result" even though both match.
	assert.Equal(t, types.SeverityCritical, DetermineImportanceFromType("Result of violation enquiry"))
	// "acquisition" outranks "update".
	assert.Equal(t, types.SeverityHigh, DetermineImportanceFromType("Update on acquisition"))
}

func TestFallbackAnnouncement_Record(t *testing.T) {
	ann := FallbackAnnouncement("500325,Reliance,Result,Q3 Results,2024-01-10,abc,file.pdf,http://x/y.pdf")

	assert.Equal(t, "Q3 Results", ann.Title)
	assert.Equal(t, types.SeverityHigh, ann.Severity)
	assert.Equal(t, "500325", ann.StockCode)
	assert.Equal(t, "Reliance", ann.CompanyName)
	assert.Equal(t, "Result", ann.FilingType)
	assert.Equal(t, "http://x/y.pdf", ann.PDFLink)
	assert.Equal(t, "abc", ann.Hash)
	assert.Equal(t, types.SourceFallback, ann.Source)
	assert.Contains(t, ann.Summary, "Reliance")
}

func TestFallbackAnnouncement_RecordSeverityFollowsFilingType(t *testing.T) {
	ann := FallbackAnnouncement("500325,Reliance,AGM,Approval of Audited Results,2024-01-10,abc,file.pdf,http://x/y.pdf")
	assert.Equal(t, types.SeverityMedium, ann.Severity)

	ann = FallbackAnnouncement("500325,Reliance,Company Update,Intimation of Acquisition,2024-01-10,abc,file.pdf,http://x/y.pdf")
	assert.Equal(t, types.SeverityLow, ann.Severity)

	// an uninformative type defers to the subject
	ann = FallbackAnnouncement("500325,Reliance,General,Intimation of Acquisition,2024-01-10,abc,file.pdf,http://x/y.pdf")
	assert.Equal(t, types.SeverityHigh, ann.Severity)
}

func TestFallbackAnnouncement_FreeText(t *testing.T) {
	ann := FallbackAnnouncement("Board approves dividend of Rs 5. Record date is 12 March for $INFY and NSE:TCS holders.")

	assert.Equal(t, "Board approves dividend of Rs 5.", ann.Title)
	assert.Equal(t, "Record date is 12 March for $INFY and NSE:TCS holders.", ann.Summary)
	assert.Equal(t, types.SeverityMedium, ann.Severity)
	assert.Equal(t, []string{"INFY", "TCS"}, ann.Tickers)
	assert.Empty(t, ann.StockCode)
}

func TestFallbackAnnouncement_TruncatesLongTitle(t *testing.T) {
	long := "This headline keeps going well beyond what any share card could ever hope to fit on two lines of text"
	ann := FallbackAnnouncement(long)

	assert.LessOrEqual(t, len([]rune(ann.Title)), maxTitleRunes)
	assert.Equal(t, "…", string([]rune(ann.Title)[len([]rune(ann.Title))-1:]))
	assert.Equal(t, long, ann.Summary)
}

func TestStripMarkup(t *testing.T) {
	in := `<div><h2>Outcome of Board Meeting</h2><p>The board approved&nbsp;the   results.</p><script>var x = 1;</script></div>`
	assert.Equal(t, "Outcome of Board Meeting\nThe board approved the results.", StripMarkup(in))

	assert.Equal(t, "plain text stays", StripMarkup("  plain   text stays "))
}

func TestExtractTickers(t *testing.T) {
	assert.Equal(t, []string{"RELIANCE", "HDFCBANK"}, ExtractTickers("Watch $RELIANCE and BSE: HDFCBANK, also $RELIANCE again"))
	assert.Nil(t, ExtractTickers("no symbols here"))
}
