package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/annrelay/internal/server"
	"github.com/shanehull/annrelay/internal/types"
)

func setupRouter(t *testing.T) (http.Handler, testRelay) {
	t.Helper()
	tr := newTestRelay(t, Config{})
	return NewRouter(NewHandler(tr.Relay, nil), nil, tr.logger), tr
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var e server.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e.Error
}

func TestHealth(t *testing.T) {
	h, _ := setupRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","connection":"open"}`, rr.Body.String())
}

func TestSendAnnouncementEndpoint(t *testing.T) {
	h, tr := setupRouter(t)

	rr := postJSON(t, h, "/send", SendRequest{ToNumber: "919876543210", Announcement: bseRecord})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp SendResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "919876543210@s.whatsapp.net", resp.JID)
	assert.Equal(t, "3EB0TEST", resp.MessageID)
	require.NotNil(t, resp.Timestamp)
	require.NotNil(t, resp.AnnouncementData)
	assert.Equal(t, "Reliance Industries", resp.AnnouncementData.CompanyName)
	assert.Len(t, tr.ch.sent, 1)
}

func TestSendRawEndpoint(t *testing.T) {
	h, _ := setupRouter(t)

	rr := postJSON(t, h, "/send", SendRequest{ToNumber: "919876543210", Text: "hello"})
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	assert.Equal(t, true, raw["success"])
	assert.NotContains(t, raw, "announcementData")
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		prepare func(*fakeChannel)
		status  int
		message string
	}{
		{"missing recipient", SendRequest{Text: "hi"}, nil, http.StatusBadRequest, "toNumber is required"},
		{"bad number", SendRequest{ToNumber: "call me", Text: "hi"}, nil, http.StatusBadRequest, "Invalid phone number"},
		{"empty message", SendRequest{ToNumber: "919876543210"}, nil, http.StatusBadRequest, "text or media is required"},
		{"not ready", SendRequest{ToNumber: "919876543210", Text: "hi"}, func(c *fakeChannel) { c.ready = false }, http.StatusConflict, "not ready"},
		{"send failure", SendRequest{ToNumber: "919876543210", Announcement: "x"}, func(c *fakeChannel) { c.sendErr = errors.New("boom") }, http.StatusInternalServerError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tr := setupRouter(t)
			if tt.prepare != nil {
				tt.prepare(tr.ch)
			}
			rr := postJSON(t, h, "/send", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, decodeError(t, rr), tt.message)
		})
	}
}

func TestSendInvalidJSON(t *testing.T) {
	h, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendMultipartMedia(t *testing.T) {
	h, tr := setupRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("toNumber", "919876543210"))
	require.NoError(t, mw.WriteField("caption", "Annual report"))

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="media"; filename="report.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/send", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, tr.ch.sent, 1)
	assert.Equal(t, "document", tr.ch.sent[0].kind)
	assert.Equal(t, "Annual report", tr.ch.sent[0].caption)
	assert.Equal(t, []byte("%PDF-1.4 test"), tr.ch.sent[0].data)
}

func TestSendMultipartAnnouncement(t *testing.T) {
	h, tr := setupRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("toNumber", "919876543210"))
	require.NoError(t, mw.WriteField("announcement", bseRecord))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/send", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "announcementData")
	assert.Equal(t, "image", tr.ch.sent[0].kind)
}

func TestRedirectAndAnalytics(t *testing.T) {
	h, tr := setupRouter(t)
	ctx := context.Background()

	code, err := tr.links.CreateShortLinkCode(ctx, "https://www.bseindia.com/a.pdf", types.LinkMetadata{StockCode: "500325"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/l/"+code, nil))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "https://www.bseindia.com/a.pdf", rr.Header().Get("Location"))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/l/unknown1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Short link not found", decodeError(t, rr))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var analytics AnalyticsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&analytics))
	assert.Equal(t, 1, analytics.Total)
	assert.Equal(t, int64(3), analytics.Links[0].Clicks)
}

func TestPreview(t *testing.T) {
	h, tr := setupRouter(t)

	rr := postJSON(t, h, "/preview", PreviewRequest{Announcement: bseRecord})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "image/png", http.DetectContentType(rr.Body.Bytes()))

	rr = postJSON(t, h, "/preview?format=svg", PreviewRequest{Announcement: bseRecord})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "<svg")

	rr = postJSON(t, h, "/preview", PreviewRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Empty(t, tr.ch.sent, "preview never sends")
}

func TestDeliveryStream(t *testing.T) {
	h, tr := setupRouter(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, err := tr.Send(context.Background(), "919876543210", Message{Text: "before"})
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg streamMsg
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.Len(t, msg.ClientID, 36)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "history", msg.Type)
	require.Len(t, msg.Deliveries, 1)
	assert.Equal(t, "text", msg.Deliveries[0].Kind)

	assert.Eventually(t, func() bool {
		tr.Hub.mu.RLock()
		defer tr.Hub.mu.RUnlock()
		return len(tr.Hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	_, err = tr.Send(context.Background(), "919876543210", Message{Text: "after"})
	require.NoError(t, err)

	msg = streamMsg{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "delivery", msg.Type)
	require.NotNil(t, msg.Delivery)
	assert.Equal(t, "3EB0TEST", msg.Delivery.MessageID)
}
