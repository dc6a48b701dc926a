/*
Package relay turns raw announcements into rendered cards and delivers them
over the messaging channel, and serves the HTTP surface around that.
*/
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/channel"
	"github.com/shanehull/annrelay/internal/history"
	"github.com/shanehull/annrelay/internal/notify"
	"github.com/shanehull/annrelay/internal/render"
	"github.com/shanehull/annrelay/internal/shortlink"
	"github.com/shanehull/annrelay/internal/types"
)

var (
	ErrMissingRecipient = errors.New("toNumber is required")
	ErrEmptyMessage     = errors.New("text or media is required")
)

type Enhancer interface {
	Enhance(ctx context.Context, raw string) types.Announcement
}

// Channel is the part of channel.Manager the relay depends on.
type Channel interface {
	State() channel.State
	WaitUntilReady(ctx context.Context, timeout time.Duration) bool
	SendText(ctx context.Context, jid, text string) (channel.SendResult, error)
	SendImage(ctx context.Context, jid string, png []byte, caption string) (channel.SendResult, error)
	SendMedia(ctx context.Context, jid string, media channel.Media, caption string) (channel.SendResult, error)
}

type Config struct {
	ReadyTimeout time.Duration
	Dedupe       bool
}

// Deps are the collaborators of a Relay. Links, History, Hub and Mirror are
// optional.
type Deps struct {
	Enhancer Enhancer
	Renderer *render.Renderer
	Channel  Channel
	Links    *shortlink.Service
	History  *history.Manager
	Hub      *Hub
	Mirror   *notify.Mirror
}

type Relay struct {
	Deps
	cfg    Config
	logger *zap.Logger
}

type Result struct {
	JID          string
	MessageID    string
	Timestamp    time.Time
	Announcement *types.Announcement
	Skipped      bool
}

// Message is a raw send without enhancement.
type Message struct {
	Text    string
	Caption string
	Media   *channel.Media
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	return &Relay{Deps: deps, cfg: cfg, logger: logger}
}

func (r *Relay) State() channel.State {
	return r.Channel.State()
}

func recipient(to string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", ErrMissingRecipient
	}
	return channel.ToJID(to)
}

// Prepare enhances raw text without sending anything.
func (r *Relay) Prepare(ctx context.Context, raw string) types.Announcement {
	return r.Enhancer.Enhance(ctx, raw)
}

// SendAnnouncement runs the full pipeline: enhance, shorten the document
// link, render, wait for the channel and send the card with its caption.
func (r *Relay) SendAnnouncement(ctx context.Context, to, raw string) (Result, error) {
	jid, err := recipient(to)
	if err != nil {
		return Result{}, err
	}

	filingID := history.FilingID(raw)
	if r.cfg.Dedupe && r.History != nil {
		if id, ok := r.History.Delivered(filingID, jid); ok {
			r.logger.Info("announcement already delivered today, skipping",
				zap.String("jid", jid),
				zap.String("filing_id", filingID),
				zap.String("message_id", id),
			)
			return Result{JID: jid, MessageID: id, Skipped: true}, nil
		}
	}

	ann := r.Enhancer.Enhance(ctx, raw)

	if r.Links != nil && ann.PDFLink != "" {
		short, err := r.Links.CreateShortLink(ctx, ann.PDFLink, types.LinkMetadata{
			StockCode:   ann.StockCode,
			CompanyName: ann.CompanyName,
			FilingType:  ann.FilingType,
		})
		if err != nil {
			r.logger.Warn("failed to shorten document link, using original", zap.String("url", ann.PDFLink), zap.Error(err))
		} else {
			ann.ShortURL = short
		}
	}

	png, err := r.Renderer.Render(ann)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render announcement: %w", err)
	}

	if !r.Channel.WaitUntilReady(ctx, r.cfg.ReadyTimeout) {
		return Result{}, channel.ErrNotReady
	}

	res, err := r.Channel.SendImage(ctx, jid, png, BuildCaption(ann))
	if err != nil {
		return Result{}, fmt.Errorf("failed to send announcement: %w", err)
	}

	r.logger.Info("announcement sent",
		zap.String("jid", jid),
		zap.String("message_id", res.MessageID),
		zap.String("severity", string(ann.Severity)),
		zap.String("source", string(ann.Source)),
	)

	if r.History != nil {
		r.History.Record(filingID, jid, res.MessageID)
	}
	r.record(jid, res, "announcement", &ann, png)
	return Result{JID: jid, MessageID: res.MessageID, Timestamp: res.Timestamp, Announcement: &ann}, nil
}

// Send delivers text or media as-is.
func (r *Relay) Send(ctx context.Context, to string, msg Message) (Result, error) {
	jid, err := recipient(to)
	if err != nil {
		return Result{}, err
	}
	if msg.Media == nil && strings.TrimSpace(msg.Text) == "" {
		return Result{}, ErrEmptyMessage
	}

	if !r.Channel.WaitUntilReady(ctx, r.cfg.ReadyTimeout) {
		return Result{}, channel.ErrNotReady
	}

	var (
		res  channel.SendResult
		kind = "text"
	)
	if msg.Media != nil {
		kind = string(msg.Media.Kind)
		caption := msg.Caption
		if caption == "" {
			caption = msg.Text
		}
		res, err = r.Channel.SendMedia(ctx, jid, *msg.Media, caption)
	} else {
		res, err = r.Channel.SendText(ctx, jid, msg.Text)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to send %s: %w", kind, err)
	}

	r.logger.Info("message sent", zap.String("jid", jid), zap.String("kind", kind), zap.String("message_id", res.MessageID))
	r.record(jid, res, kind, nil, nil)
	return Result{JID: jid, MessageID: res.MessageID, Timestamp: res.Timestamp}, nil
}

func (r *Relay) record(jid string, res channel.SendResult, kind string, ann *types.Announcement, png []byte) {
	r.Hub.Publish(types.Delivery{
		JID:          jid,
		MessageID:    res.MessageID,
		Timestamp:    res.Timestamp,
		Kind:         kind,
		Announcement: ann,
	})

	if ann != nil && r.Mirror != nil {
		go r.Mirror.Notify(notify.NotificationData{
			Announcement: *ann,
			JID:          jid,
			MessageID:    res.MessageID,
			SentAt:       res.Timestamp,
			Image:        png,
		})
	}
}
