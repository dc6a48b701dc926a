/*
Package notify mirrors delivered announcements to email.
*/
package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/types"
)

// NotificationData is everything the mirror needs about one delivery.
type NotificationData struct {
	Announcement types.Announcement
	JID          string
	MessageID    string
	SentAt       time.Time
	Image        []byte
}

type Attachment struct {
	Name string
	Data []byte
}

type RenderedMessage struct {
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Mirror struct {
	renderer *HTMLEmailRenderer
	sender   *EmailSender
	logger   *zap.Logger
}

// NewMirror returns nil when cfg is incomplete; a nil Mirror ignores Notify.
func NewMirror(cfg EmailConfig, logger *zap.Logger) *Mirror {
	if !cfg.Complete() {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		renderer: NewHTMLEmailRenderer(),
		sender:   NewEmailSender(cfg, logger),
		logger:   logger,
	}
}

// Notify renders and sends one delivery. Errors are logged only.
func (m *Mirror) Notify(data NotificationData) {
	if m == nil {
		return
	}

	msg, err := m.renderer.Render(data)
	if err != nil {
		m.logger.Warn("failed to render email mirror", zap.Error(err))
		return
	}
	if err := m.sender.Send(msg); err != nil {
		m.logger.Warn("failed to send email mirror", zap.String("subject", msg.Subject), zap.Error(err))
	}
}
