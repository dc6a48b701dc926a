/*
Package whatsapp implements channel.Dialer and channel.Session on top of the
whatsmeow multi-device client. Credentials live in a SQLite database inside
the auth directory; the first run prints a pairing code to the log.
*/
package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/shanehull/annrelay/internal/channel"
)

const sessionDB = "session.db"

type Dialer struct {
	authDir string
	logger  *zap.Logger

	mu        sync.Mutex
	container *sqlstore.Container
}

func NewDialer(authDir string, logger *zap.Logger) *Dialer {
	return &Dialer{authDir: authDir, logger: logger}
}

func (d *Dialer) String() string {
	return "whatsapp(" + d.authDir + ")"
}

func (d *Dialer) store(ctx context.Context) (*sqlstore.Container, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.container != nil {
		return d.container, nil
	}

	if err := os.MkdirAll(d.authDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create auth directory %s: %w", d.authDir, err)
	}

	dsn := "file:" + filepath.Join(d.authDir, sessionDB) + "?_foreign_keys=on"
	container, err := sqlstore.New(ctx, "sqlite3", dsn, NewLogger(d.logger.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	d.container = container
	return container, nil
}

// Dial connects a client and returns once the connection is usable. An
// unpaired device blocks until the pairing code is scanned or ctx ends.
func (d *Dialer) Dial(ctx context.Context) (channel.Session, error) {
	container, err := d.store(ctx)
	if err != nil {
		return nil, err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	client := whatsmeow.NewClient(device, NewLogger(d.logger.Named("client")))
	// Reconnects are driven by channel.Manager.
	client.EnableAutoReconnect = false

	s := newSession(client, d.logger)
	client.AddEventHandler(s.handleEvent)

	if client.Store.ID == nil {
		if err := d.pair(ctx, client); err != nil {
			client.Disconnect()
			return nil, err
		}
	} else if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	select {
	case <-s.connected:
		return s, nil
	case reason := <-s.closed:
		client.Disconnect()
		if reason == channel.ReasonLoggedOut {
			return nil, channel.ErrLoggedOut
		}
		return nil, fmt.Errorf("connection closed during handshake: %s", reason)
	case <-ctx.Done():
		client.Disconnect()
		return nil, ctx.Err()
	}
}

func (d *Dialer) pair(ctx context.Context, client *whatsmeow.Client) error {
	qrChan, err := client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pairing channel: %w", err)
	}
	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for item := range qrChan {
		switch item.Event {
		case "code":
			d.logger.Info("scan this code with WhatsApp > Linked devices",
				zap.String("qr", item.Code),
				zap.Duration("expires_in", item.Timeout),
			)
		case "success":
			d.logger.Info("device paired")
			return nil
		default:
			if item.Error != nil {
				return fmt.Errorf("pairing failed: %w", item.Error)
			}
			return fmt.Errorf("pairing failed: %s", item.Event)
		}
	}
	return fmt.Errorf("pairing channel closed")
}

type session struct {
	client *whatsmeow.Client
	logger *zap.Logger

	connected     chan struct{}
	connectedOnce sync.Once
	closed        chan channel.CloseReason
	closedOnce    sync.Once
}

func newSession(client *whatsmeow.Client, logger *zap.Logger) *session {
	return &session{
		client:    client,
		logger:    logger,
		connected: make(chan struct{}),
		closed:    make(chan channel.CloseReason, 1),
	}
}

func (s *session) handleEvent(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		s.connectedOnce.Do(func() { close(s.connected) })
	case *events.Disconnected:
		s.drop(channel.ReasonConnectionLost)
	case *events.LoggedOut:
		s.drop(channel.ReasonLoggedOut)
	case *events.StreamReplaced:
		s.drop(channel.ReasonReplaced)
	}
}

func (s *session) drop(r channel.CloseReason) {
	s.closedOnce.Do(func() { s.closed <- r })
}

func (s *session) Closed() <-chan channel.CloseReason {
	return s.closed
}

func (s *session) Close() error {
	s.client.Disconnect()
	s.drop(channel.ReasonClosed)
	return nil
}

func (s *session) SendText(ctx context.Context, jid, text string) (channel.SendResult, error) {
	return s.send(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
}

func (s *session) SendImage(ctx context.Context, jid string, png []byte, caption string) (channel.SendResult, error) {
	return s.SendMedia(ctx, jid, channel.Media{Kind: channel.MediaImage, Data: png, MimeType: "image/png"}, caption)
}

func (s *session) SendMedia(ctx context.Context, jid string, m channel.Media, caption string) (channel.SendResult, error) {
	up, err := s.client.Upload(ctx, m.Data, uploadType(m.Kind))
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("failed to upload %s: %w", m.Kind, err)
	}

	mime := m.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}

	msg := &waE2E.Message{}
	switch m.Kind {
	case channel.MediaImage:
		msg.ImageMessage = &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mime),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	case channel.MediaVideo:
		msg.VideoMessage = &waE2E.VideoMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mime),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	case channel.MediaAudio:
		msg.AudioMessage = &waE2E.AudioMessage{
			Mimetype:      proto.String(mime),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	default:
		name := m.FileName
		if name == "" {
			name = "document"
		}
		msg.DocumentMessage = &waE2E.DocumentMessage{
			Caption:       proto.String(caption),
			Title:         proto.String(name),
			FileName:      proto.String(name),
			Mimetype:      proto.String(mime),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}
	}

	return s.send(ctx, jid, msg)
}

func (s *session) send(ctx context.Context, jid string, msg *waE2E.Message) (channel.SendResult, error) {
	to, err := types.ParseJID(jid)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("%w: %s", channel.ErrInvalidJID, jid)
	}

	resp, err := s.client.SendMessage(ctx, to, msg)
	if err != nil {
		return channel.SendResult{}, fmt.Errorf("failed to send message to %s: %w", jid, err)
	}

	ts := resp.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return channel.SendResult{MessageID: resp.ID, Timestamp: ts}, nil
}

func uploadType(k channel.MediaKind) whatsmeow.MediaType {
	switch k {
	case channel.MediaImage:
		return whatsmeow.MediaImage
	case channel.MediaVideo:
		return whatsmeow.MediaVideo
	case channel.MediaAudio:
		return whatsmeow.MediaAudio
	}
	return whatsmeow.MediaDocument
}
