package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shanehull/annrelay/internal/render"
)

const sentLayout = "02 Jan 2006 3:04 PM"

// HTMLEmailRenderer renders notifications as HTML emails with a plain text fallback.
type HTMLEmailRenderer struct {
	tmpl *template.Template
}

func NewHTMLEmailRenderer() *HTMLEmailRenderer {
	return &HTMLEmailRenderer{tmpl: template.Must(template.New("email").Parse(emailHTMLTemplate))}
}

// emailView is what the HTML template sees. The header reuses the card's
// severity palette.
type emailView struct {
	NotificationData
	Theme   render.Theme
	Company string
	Link    string
	Sent    string
}

func newEmailView(data NotificationData) emailView {
	a := data.Announcement
	company := a.CompanyName
	if a.StockCode != "" {
		company = strings.TrimSpace(company + " (" + a.StockCode + ")")
	}
	return emailView{
		NotificationData: data,
		Theme:            render.ThemeFor(a.Severity),
		Company:          company,
		Link:             documentLink(a.ShortURL, a.PDFLink),
		Sent:             data.SentAt.Format(sentLayout),
	}
}

func subjectFor(data NotificationData) string {
	a := data.Announcement
	prefix := strings.ToUpper(string(a.Severity))
	if a.StockCode != "" {
		return fmt.Sprintf("[%s] %s: %s", prefix, a.StockCode, a.Title)
	}
	return fmt.Sprintf("[%s] %s", prefix, a.Title)
}

func (r *HTMLEmailRenderer) Render(data NotificationData) (*RenderedMessage, error) {
	var htmlBuf bytes.Buffer
	if err := r.tmpl.Execute(&htmlBuf, newEmailView(data)); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	msg := &RenderedMessage{
		Subject: subjectFor(data),
		Text:    renderPlainText(data),
		HTML:    htmlBuf.String(),
	}
	if len(data.Image) > 0 {
		msg.Attachments = append(msg.Attachments, Attachment{Name: attachmentName(data), Data: data.Image})
	}
	return msg, nil
}

func attachmentName(data NotificationData) string {
	name := data.Announcement.StockCode
	if name == "" {
		name = "announcement"
	}
	return name + ".png"
}

// renderPlainText produces a readable plain text version for email clients that don't support HTML.
func renderPlainText(data NotificationData) string {
	a := data.Announcement
	var sb strings.Builder

	sb.WriteString(a.Title + "\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString(fmt.Sprintf("Severity: %s\n", strings.ToUpper(string(a.Severity))))
	if a.CompanyName != "" || a.StockCode != "" {
		sb.WriteString(fmt.Sprintf("Company:  %s (%s)\n", a.CompanyName, a.StockCode))
	}
	if a.FilingType != "" {
		sb.WriteString(fmt.Sprintf("Filing:   %s\n", a.FilingType))
	}
	if len(a.Tickers) > 0 {
		sb.WriteString(fmt.Sprintf("Tickers:  %s\n", strings.Join(a.Tickers, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Sent to:  %s at %s\n", data.JID, data.SentAt.Format(sentLayout)))

	if link := documentLink(a.ShortURL, a.PDFLink); link != "" {
		sb.WriteString(fmt.Sprintf("Document: %s\n", link))
	}
	sb.WriteString("\n")

	if a.Summary != "" {
		sb.WriteString("SUMMARY\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		sb.WriteString(a.Summary + "\n")
	}

	return sb.String()
}

func documentLink(short, pdf string) string {
	if short != "" {
		return short
	}
	return pdf
}
