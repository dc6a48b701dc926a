package channel

import (
	"context"
	"time"
)

type CloseReason string

const (
	ReasonConnectionLost CloseReason = "connection_lost"
	ReasonLoggedOut      CloseReason = "logged_out"
	ReasonReplaced       CloseReason = "replaced"
	ReasonClosed         CloseReason = "closed"
)

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// ParseMediaKind maps a mime type or an explicit kind name to a MediaKind.
// Unknown values are sent as documents.
func ParseMediaKind(s string) MediaKind {
	switch {
	case s == string(MediaImage), len(s) > 6 && s[:6] == "image/":
		return MediaImage
	case s == string(MediaVideo), len(s) > 6 && s[:6] == "video/":
		return MediaVideo
	case s == string(MediaAudio), len(s) > 6 && s[:6] == "audio/":
		return MediaAudio
	}
	return MediaDocument
}

type Media struct {
	Kind     MediaKind
	Data     []byte
	MimeType string
	FileName string
}

type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Session is one authenticated connection to the messaging network.
type Session interface {
	SendText(ctx context.Context, jid, text string) (SendResult, error)
	SendImage(ctx context.Context, jid string, png []byte, caption string) (SendResult, error)
	SendMedia(ctx context.Context, jid string, media Media, caption string) (SendResult, error)
	// Closed delivers exactly one reason when the session ends.
	Closed() <-chan CloseReason
	Close() error
}

// Dialer establishes sessions. A Dial error wrapping ErrLoggedOut means the
// stored credentials are no longer valid.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}
