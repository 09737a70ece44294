package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/stickermart/internal/platform/telegram"
)

type fakeProcessor struct {
	err    error
	calls  int
	lastID int64
}

func (f *fakeProcessor) Process(_ context.Context, update telegram.Update) error {
	f.calls++
	f.lastID = update.UpdateID
	return f.err
}

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	return rec
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookHandlerProcessesUpdate(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewWebhookHandler(proc, quietLogger())

	rec := postWebhook(h, `{"update_id": 42}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if proc.calls != 1 || proc.lastID != 42 {
		t.Fatalf("processor calls = %d, lastID = %d", proc.calls, proc.lastID)
	}
}

func TestWebhookHandlerSwallowsMalformedBody(t *testing.T) {
	proc := &fakeProcessor{}
	h := NewWebhookHandler(proc, quietLogger())

	rec := postWebhook(h, `{"update_id": `)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so the Bot API stops retrying", rec.Code)
	}
	if proc.calls != 0 {
		t.Fatalf("processor called %d times for garbage body", proc.calls)
	}
}

func TestWebhookHandlerSurfacesTransientFailure(t *testing.T) {
	proc := &fakeProcessor{err: errors.New("store down")}
	h := NewWebhookHandler(proc, quietLogger())

	rec := postWebhook(h, `{"update_id": 7}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 to trigger redelivery", rec.Code)
	}
}
