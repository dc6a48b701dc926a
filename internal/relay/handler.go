package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/shanehull/annrelay/internal/channel"
	"github.com/shanehull/annrelay/internal/server"
	"github.com/shanehull/annrelay/internal/types"
)

const maxUploadBytes = 32 << 20

type Handler struct {
	relay  *Relay
	logger *zap.Logger
}

func NewHandler(r *Relay, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{relay: r, logger: logger}
}

type SendRequest struct {
	ToNumber     string `json:"toNumber"`
	Text         string `json:"text,omitempty"`
	Caption      string `json:"caption,omitempty"`
	MediaType    string `json:"mediaType,omitempty"`
	Announcement string `json:"announcement,omitempty"`
}

func (s SendRequest) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ToNumber, validation.Required.Error("toNumber is required")),
	)
}

type SendResponse struct {
	Success          bool                `json:"success"`
	Skipped          bool                `json:"skipped,omitempty"`
	JID              string              `json:"jid"`
	MessageID        string              `json:"messageId"`
	Timestamp        *time.Time          `json:"timestamp,omitempty"`
	AnnouncementData *types.Announcement `json:"announcementData,omitempty"`
}

type PreviewRequest struct {
	Announcement string `json:"announcement"`
}

type AnalyticsResponse struct {
	Total int               `json:"total"`
	Links []types.ShortLink `json:"links"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"connection": h.relay.State().String(),
	})
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	if h.relay.Links == nil {
		server.WriteError(w, http.StatusNotFound, "Short link not found")
		return
	}

	code := chi.URLParam(r, "shortCode")
	target, ok, err := h.relay.Links.ResolveShortLink(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to resolve short link", zap.String("code", code), zap.Error(err))
		server.WriteError(w, http.StatusInternalServerError, "Failed to resolve short link")
		return
	}
	if !ok {
		server.WriteError(w, http.StatusNotFound, "Short link not found")
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	links := []types.ShortLink{}
	if h.relay.Links != nil {
		var err error
		links, err = h.relay.Links.GetAllLinksAnalytics(r.Context())
		if err != nil {
			h.logger.Error("failed to load link analytics", zap.Error(err))
			server.WriteError(w, http.StatusInternalServerError, "Failed to load analytics")
			return
		}
	}
	server.WriteJSON(w, http.StatusOK, AnalyticsResponse{Total: len(links), Links: links})
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	req, media, err := parseSendRequest(r)
	if err != nil {
		server.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		server.WriteError(w, http.StatusBadRequest, ErrMissingRecipient.Error())
		return
	}

	var res Result
	if strings.TrimSpace(req.Announcement) != "" {
		res, err = h.relay.SendAnnouncement(r.Context(), req.ToNumber, req.Announcement)
	} else {
		res, err = h.relay.Send(r.Context(), req.ToNumber, Message{Text: req.Text, Caption: req.Caption, Media: media})
	}
	if err != nil {
		h.writeSendError(w, err)
		return
	}

	resp := SendResponse{
		Success:          true,
		Skipped:          res.Skipped,
		JID:              res.JID,
		MessageID:        res.MessageID,
		AnnouncementData: res.Announcement,
	}
	if !res.Timestamp.IsZero() {
		ts := res.Timestamp
		resp.Timestamp = &ts
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingRecipient), errors.Is(err, ErrEmptyMessage):
		server.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, channel.ErrInvalidJID):
		server.WriteError(w, http.StatusBadRequest, "Invalid phone number")
	case errors.Is(err, channel.ErrNotReady):
		server.WriteError(w, http.StatusConflict, "WhatsApp connection not ready, please try again")
	default:
		h.logger.Error("send failed", zap.Error(err))
		server.WriteError(w, http.StatusInternalServerError, "Failed to send message: "+err.Error())
	}
}

// parseSendRequest accepts a JSON body or a multipart form whose fields mirror
// the JSON keys, with an optional "media" file part.
func parseSendRequest(r *http.Request) (SendRequest, *channel.Media, error) {
	var req SendRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, errors.New("invalid JSON body")
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, nil, errors.New("invalid multipart form")
	}
	req = SendRequest{
		ToNumber:     r.FormValue("toNumber"),
		Text:         r.FormValue("text"),
		Caption:      r.FormValue("caption"),
		MediaType:    r.FormValue("mediaType"),
		Announcement: r.FormValue("announcement"),
	}

	file, header, err := r.FormFile("media")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, errors.New("invalid media upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, nil, errors.New("failed to read media upload")
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	kind := req.MediaType
	if kind == "" {
		kind = mime
	}

	return req, &channel.Media{
		Kind:     channel.ParseMediaKind(kind),
		Data:     data,
		MimeType: mime,
		FileName: header.Filename,
	}, nil
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Announcement) == "" {
		server.WriteError(w, http.StatusBadRequest, "announcement is required")
		return
	}

	ann := h.relay.Prepare(r.Context(), req.Announcement)

	if r.URL.Query().Get("format") == "svg" {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(h.relay.Renderer.RenderSVG(ann))
		return
	}

	png, err := h.relay.Renderer.Render(ann)
	if err != nil {
		h.logger.Error("preview render failed", zap.Error(err))
		server.WriteError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// NewRouter mounts the relay routes. limiter may be nil.
func NewRouter(h *Handler, limiter *server.RateLimiter, logger *zap.Logger) http.Handler {
	r := server.NewRouter(logger)

	r.Get("/health", h.Health)
	r.Get("/l/{shortCode}", h.Redirect)
	r.Get("/analytics", h.Analytics)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/send", h.Send)
		r.Post("/preview", h.Preview)
	})

	if h.relay.Hub != nil {
		r.Get("/ws", h.relay.Hub.ServeWS)
	}

	return r
}
