package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/metrics"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// Notifier posts daemon events to a webhook
type Notifier struct {
	config  *config.NotificationConfig
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewNotifier creates a new notifier; m may be nil
func NewNotifier(cfg *config.NotificationConfig, logger *zap.Logger, m *metrics.Metrics) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		metrics: m,
	}
}

// NotificationMessage represents a notification
type NotificationMessage struct {
	Title     string
	Message   string
	Timestamp time.Time
	Type      string // "startup", "shutdown", "junk", "low_memory", "clean"
	Data      map[string]interface{}
}

func (n *Notifier) enabled() bool {
	return n.config.Enabled && n.config.Webhook.URL != ""
}

// SendStartupNotification sends a startup notification
func (n *Notifier) SendStartupNotification(ctx context.Context) {
	if !n.enabled() {
		return
	}
	n.send(ctx, &NotificationMessage{
		Title:     "Toolbox daemon started",
		Message:   "Scheduled device checks are running",
		Timestamp: time.Now(),
		Type:      "startup",
	})
}

// SendShutdownNotification sends a shutdown notification
func (n *Notifier) SendShutdownNotification(ctx context.Context) {
	if !n.enabled() {
		return
	}
	n.send(ctx, &NotificationMessage{
		Title:     "Toolbox daemon stopped",
		Message:   "Scheduled device checks have stopped",
		Timestamp: time.Now(),
		Type:      "shutdown",
	})
}

// SendJunkNotification reports junk over the job's threshold
func (n *Notifier) SendJunkNotification(ctx context.Context, job *CheckJob, result *scanner.ScanResult) {
	if !n.enabled() || !n.config.OnJunk {
		return
	}

	byType := make(map[string]interface{})
	for t, g := range result.GroupByType() {
		byType[t.String()] = g.TotalSize
	}

	n.send(ctx, &NotificationMessage{
		Title:     "Junk files piling up",
		Message:   fmt.Sprintf("%d unnecessary files use %s", result.TotalCount, utils.FormatBytes(result.TotalSize)),
		Timestamp: time.Now(),
		Type:      "junk",
		Data: map[string]interface{}{
			"job":       job.Name,
			"files":     result.TotalCount,
			"bytes":     result.TotalSize,
			"threshold": job.JunkThreshold,
			"by_type":   byType,
		},
	})
}

// SendLowMemoryNotification reports available RAM under the job's minimum
func (n *Notifier) SendLowMemoryNotification(ctx context.Context, job *CheckJob, mem device.Memory) {
	if !n.enabled() || !n.config.OnLowMemory {
		return
	}

	n.send(ctx, &NotificationMessage{
		Title: "Memory running low",
		Message: fmt.Sprintf("%s available of %s (%.1f%%)",
			utils.FormatBytes(int64(mem.Available)), utils.FormatBytes(int64(mem.Total)), mem.AvailablePercent()),
		Timestamp: time.Now(),
		Type:      "low_memory",
		Data: map[string]interface{}{
			"job":               job.Name,
			"available_bytes":   mem.Available,
			"total_bytes":       mem.Total,
			"available_percent": mem.AvailablePercent(),
			"min_percent":       job.MinAvailablePercent,
		},
	})
}

// SendCleanNotification reports an automatic clean
func (n *Notifier) SendCleanNotification(ctx context.Context, job *CheckJob, result *cleaner.CleanResult) {
	if !n.enabled() || !n.config.OnClean {
		return
	}

	title := fmt.Sprintf("Cleaned: %s", job.Name)
	if result.Failed > 0 {
		title = fmt.Sprintf("Cleaned with errors: %s", job.Name)
	}

	n.send(ctx, &NotificationMessage{
		Title: title,
		Message: fmt.Sprintf("Deleted %d files, freed %s, %d failed",
			len(result.DeletedFiles), utils.FormatBytes(result.DeletedSize), result.Failed),
		Timestamp: time.Now(),
		Type:      "clean",
		Data: map[string]interface{}{
			"job":           job.Name,
			"files_deleted": len(result.DeletedFiles),
			"space_freed":   result.DeletedSize,
			"failed":        result.Failed,
			"dry_run":       result.DryRun,
			"duration":      result.FinishedAt.Sub(result.StartedAt).String(),
		},
	})
}

func (n *Notifier) send(ctx context.Context, msg *NotificationMessage) {
	err := n.sendWebhook(ctx, msg)
	if n.metrics != nil {
		n.metrics.RecordNotification(err)
	}
	if err != nil {
		n.logger.Error("failed to send webhook notification", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	n.logger.Info("webhook notification sent", zap.String("title", msg.Title))
}

// sendWebhook sends a webhook notification
func (n *Notifier) sendWebhook(ctx context.Context, msg *NotificationMessage) error {
	cfg := &n.config.Webhook

	payload := map[string]interface{}{
		"title":     msg.Title,
		"message":   msg.Message,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
		"type":      msg.Type,
		"data":      msg.Data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
