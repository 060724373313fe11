package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
)

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
	headers  []http.Header
	methods  []string
	status   int
}

func newWebhookRecorder(t *testing.T) (*webhookRecorder, *httptest.Server) {
	rec := &webhookRecorder{status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)

		rec.mu.Lock()
		rec.payloads = append(rec.payloads, payload)
		rec.headers = append(rec.headers, r.Header.Clone())
		rec.methods = append(rec.methods, r.Method)
		status := rec.status
		rec.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return rec, srv
}

func (r *webhookRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.payloads {
		out = append(out, p["type"].(string))
	}
	return out
}

func notifyConfig(url string) *config.NotificationConfig {
	return &config.NotificationConfig{
		Enabled:     true,
		OnJunk:      true,
		OnLowMemory: true,
		OnClean:     true,
		Webhook: config.WebhookConfig{
			URL:     url,
			Headers: map[string]string{"Authorization": "Bearer token"},
		},
	}
}

func TestNotifierJunkPayload(t *testing.T) {
	rec, srv := newWebhookRecorder(t)
	n := NewNotifier(notifyConfig(srv.URL), nil, nil)

	job := &CheckJob{CheckSchedule: config.CheckSchedule{Name: "junk-reminder", JunkThreshold: "1KB"}}
	result := scanner.NewScanResult([]scanner.UnnecessaryFile{
		{Path: "/a.tmp", Size: 100, Type: scanner.Temp},
		{Path: "/b.apk", Size: 2000, Type: scanner.ObsoleteAPK},
	})
	n.SendJunkNotification(context.Background(), job, result)

	require.Len(t, rec.payloads, 1)
	p := rec.payloads[0]
	assert.Equal(t, "junk", p["type"])
	assert.Contains(t, p["message"], "2 unnecessary files")

	data := p["data"].(map[string]any)
	assert.Equal(t, "junk-reminder", data["job"])
	assert.Equal(t, float64(2100), data["bytes"])
	assert.Equal(t, map[string]any{"temp": float64(100), "obsolete_apk": float64(2000)}, data["by_type"])

	assert.Equal(t, http.MethodPost, rec.methods[0])
	assert.Equal(t, "Bearer token", rec.headers[0].Get("Authorization"))
	assert.Equal(t, "application/json", rec.headers[0].Get("Content-Type"))
}

func TestNotifierRespectsToggles(t *testing.T) {
	rec, srv := newWebhookRecorder(t)
	job := &CheckJob{CheckSchedule: config.CheckSchedule{Name: "ram-check", MinAvailablePercent: 15}}
	ctx := context.Background()

	disabled := notifyConfig(srv.URL)
	disabled.Enabled = false
	NewNotifier(disabled, nil, nil).SendLowMemoryNotification(ctx, job, device.Memory{Total: 100, Available: 5})

	noMemory := notifyConfig(srv.URL)
	noMemory.OnLowMemory = false
	NewNotifier(noMemory, nil, nil).SendLowMemoryNotification(ctx, job, device.Memory{Total: 100, Available: 5})

	noURL := notifyConfig("")
	NewNotifier(noURL, nil, nil).SendStartupNotification(ctx)

	assert.Empty(t, rec.types())

	NewNotifier(notifyConfig(srv.URL), nil, nil).SendLowMemoryNotification(ctx, job, device.Memory{Total: 100, Available: 5})
	assert.Equal(t, []string{"low_memory"}, rec.types())
}

func TestNotifierCleanAndCustomMethod(t *testing.T) {
	rec, srv := newWebhookRecorder(t)
	cfg := notifyConfig(srv.URL)
	cfg.Webhook.Method = http.MethodPut

	start := time.Now()
	n := NewNotifier(cfg, nil, nil)
	n.SendCleanNotification(context.Background(), &CheckJob{CheckSchedule: config.CheckSchedule{Name: "nightly"}}, &cleaner.CleanResult{
		DeletedFiles: []string{"/a.tmp"},
		DeletedSize:  100,
		Failed:       1,
		StartedAt:    start,
		FinishedAt:   start.Add(time.Second),
	})

	require.Len(t, rec.payloads, 1)
	assert.Equal(t, http.MethodPut, rec.methods[0])
	assert.Equal(t, "Cleaned with errors: nightly", rec.payloads[0]["title"])
}

func TestSendWebhookStatusError(t *testing.T) {
	rec, srv := newWebhookRecorder(t)
	rec.status = http.StatusBadGateway

	n := NewNotifier(notifyConfig(srv.URL), nil, nil)
	err := n.sendWebhook(context.Background(), &NotificationMessage{Title: "x", Type: "startup", Timestamp: time.Now()})
	assert.EqualError(t, err, "webhook returned status 502")
}
