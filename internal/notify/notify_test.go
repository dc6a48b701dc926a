package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/annrelay/internal/types"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

var completeConfig = EmailConfig{
	SMTPServer: "smtp.example.com",
	SMTPPort:   587,
	FromEmail:  "relay@example.com",
	ToEmail:    "desk@example.com",
}

func sampleData() NotificationData {
	return NotificationData{
		Announcement: types.Announcement{
			Title:       "Q3 Results <beat>",
			Summary:     "Net profit up 12%.",
			Severity:    types.SeverityHigh,
			StockCode:   "500325",
			CompanyName: "Reliance",
			FilingType:  "Result",
			Tickers:     []string{"RELIANCE"},
			ShortURL:    "https://relay.example.com/l/abc123",
			PDFLink:     "https://www.bseindia.com/x.pdf",
		},
		JID:       "91@s.whatsapp.net",
		MessageID: "MSG-1",
		SentAt:    time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
		Image:     []byte("\x89PNG fake"),
	}
}

func TestRender(t *testing.T) {
	msg, err := NewHTMLEmailRenderer().Render(sampleData())
	require.NoError(t, err)

	assert.Equal(t, "[HIGH] 500325: Q3 Results <beat>", msg.Subject)
	assert.Contains(t, msg.HTML, "Q3 Results &lt;beat&gt;")
	assert.Contains(t, msg.HTML, "badge-high")
	assert.Contains(t, msg.HTML, "HIGH IMPACT")
	assert.Contains(t, msg.HTML, "Reliance (500325)")
	assert.Contains(t, msg.HTML, "https://relay.example.com/l/abc123")
	assert.NotContains(t, msg.HTML, "bseindia", "short link wins over the raw document link")
	assert.Contains(t, msg.Text, "Company:  Reliance (500325)")
	assert.Contains(t, msg.Text, "Document: https://relay.example.com/l/abc123")

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "500325.png", msg.Attachments[0].Name)
}

func TestRenderMinimal(t *testing.T) {
	msg, err := NewHTMLEmailRenderer().Render(NotificationData{
		Announcement: types.Announcement{Title: "Note", Severity: types.SeverityInfo},
	})
	require.NoError(t, err)
	assert.Equal(t, "[INFO] Note", msg.Subject)
	assert.Empty(t, msg.Attachments)
	assert.NotContains(t, msg.Text, "Company:")
}

func TestSenderBuildsMultipartWithAttachment(t *testing.T) {
	d := &captureDialer{}
	s := NewEmailSender(completeConfig, zap.NewNop())
	s.dialer = d

	msg, err := NewHTMLEmailRenderer().Render(sampleData())
	require.NoError(t, err)
	require.NoError(t, s.Send(msg))
	require.Len(t, d.sent, 1)

	var buf bytes.Buffer
	_, err = d.sent[0].WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "To: desk@example.com")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, `filename="500325.png"`)
}

func TestMirrorLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewMirror(completeConfig, zap.New(core))
	require.NotNil(t, m)
	m.sender.dialer = &captureDialer{err: errors.New("connection refused")}

	m.Notify(sampleData())
	assert.Equal(t, 1, logs.FilterMessage("failed to send email mirror").Len())
}

func TestNilMirror(t *testing.T) {
	m := NewMirror(EmailConfig{SMTPServer: "smtp.example.com"}, nil)
	assert.Nil(t, m)
	assert.NotPanics(t, func() { m.Notify(sampleData()) })
}
