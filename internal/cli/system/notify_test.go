package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/config"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/fanout"
	"github.com/julianstephens/tminus/internal/models"
)

type webhookRecorder struct {
	mu     sync.Mutex
	events []fanout.Event
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var ev fanout.Event
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *webhookRecorder) received() []fanout.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fanout.Event(nil), r.events...)
}

func setupTestNotify(t *testing.T) (*cli.Context, *webhookRecorder) {
	ctx, cleanup := setupTestDoctorDB(t)
	t.Cleanup(cleanup)

	rec := &webhookRecorder{}
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Tray.Enabled = false
	cfg.Webhooks = []config.WebhookConfig{{URL: server.URL}}
	ctx.Config = cfg

	return ctx, rec
}

func TestNotifyCmd_SendsStoredTarget(t *testing.T) {
	ctx, rec := setupTestNotify(t)

	if err := ctx.Store.Write(context.Background(), constants.FieldSelectedDate, "2030-01-01 09:00"); err != nil {
		t.Fatalf("failed to write target: %v", err)
	}

	if err := (&NotifyCmd{}).Run(ctx); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	events := rec.received()
	if len(events) != 1 {
		t.Fatalf("expected 1 webhook event, got %d", len(events))
	}
	if events[0].Value != "2030-01-01 09:00" || events[0].Cleared {
		t.Errorf("unexpected event: %+v", events[0])
	}

	mirrored, ok, err := ctx.Store.Read(context.Background(), constants.FieldNotifyUpdate)
	if err != nil || !ok {
		t.Fatalf("expected mirrored field, ok=%v err=%v", ok, err)
	}
	if mirrored != "2030-01-01 09:00" {
		t.Errorf("mirrored value = %q", mirrored)
	}
}

func TestNotifyCmd_ExplicitValue(t *testing.T) {
	ctx, rec := setupTestNotify(t)

	if err := (&NotifyCmd{Value: "2031-06-01 12:30"}).Run(ctx); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	events := rec.received()
	if len(events) != 1 || events[0].Value != "2031-06-01 12:30" {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestNotifyCmd_DryRun(t *testing.T) {
	ctx, rec := setupTestNotify(t)

	if err := (&NotifyCmd{Value: "2031-06-01 12:30", DryRun: true}).Run(ctx); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if n := len(rec.received()); n != 0 {
		t.Errorf("dry run sent %d webhook events", n)
	}
	if _, ok, _ := ctx.Store.Read(context.Background(), constants.FieldNotifyUpdate); ok {
		t.Error("dry run should not write the mirror field")
	}
}

func TestNotifyCmd_Disabled(t *testing.T) {
	ctx, rec := setupTestNotify(t)

	settings := models.DefaultSettings()
	settings.NotificationsEnabled = false
	settings.NotifyFieldEnabled = false
	if err := ctx.Store.SaveSettings(settings); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	if err := (&NotifyCmd{Value: "2031-06-01 12:30"}).Run(ctx); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if n := len(rec.received()); n != 0 {
		t.Errorf("disabled notifications sent %d webhook events", n)
	}
}

func TestNotifyCmd_WebhookFailure(t *testing.T) {
	ctx, cleanup := setupTestDoctorDB(t)
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Tray.Enabled = false
	cfg.Webhooks = []config.WebhookConfig{{URL: server.URL}}
	ctx.Config = cfg

	if err := (&NotifyCmd{Value: "2031-06-01 12:30"}).Run(ctx); err == nil {
		t.Error("expected error when the webhook fails")
	}
}
