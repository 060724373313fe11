package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/engine"
	"github.com/fenilsonani/cleaner-toolbox/internal/metrics"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
	"github.com/fenilsonani/cleaner-toolbox/pkg/utils"
)

// Daemon runs the scheduled device checks
type Daemon struct {
	config      *config.Config
	engine      *engine.Engine
	scheduler   *Scheduler
	notifier    *Notifier
	metrics     *metrics.Metrics
	logger      *zap.Logger
	server      *http.Server
	running     bool
	shutdownCtx context.Context
	cancelFunc  context.CancelFunc
	mu          sync.RWMutex
}

// New creates a new daemon instance
func New(eng *engine.Engine, logger *zap.Logger) (*Daemon, error) {
	cfg := eng.Config
	if cfg.Daemon == nil || !cfg.Daemon.Enabled {
		return nil, fmt.Errorf("daemon not enabled in configuration")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := metrics.New()
	d := &Daemon{
		config:      cfg,
		engine:      eng,
		metrics:     m,
		logger:      logger,
		shutdownCtx: ctx,
		cancelFunc:  cancel,
	}

	d.notifier = NewNotifier(&cfg.Daemon.Notifications, logger, m)
	d.scheduler = NewScheduler(d, cfg.Daemon.Schedules, logger)

	return d, nil
}

// Metrics returns the daemon's metrics
func (d *Daemon) Metrics() *metrics.Metrics {
	return d.metrics
}

// Scheduler returns the daemon's scheduler
func (d *Daemon) Scheduler() *Scheduler {
	return d.scheduler
}

// Start runs the daemon until Stop is called or a termination signal arrives
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info("starting toolbox daemon")

	if err := d.acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer d.releaseLock()

	if err := d.writePidFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer d.removePidFile()

	stopSignals := d.setupSignalHandlers()
	defer stopSignals()

	if err := d.startMetricsServer(); err != nil {
		return err
	}
	defer d.stopMetricsServer()

	if err := d.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer d.scheduler.Stop()

	d.logger.Info("daemon started", zap.Int("schedules", len(d.config.Daemon.Schedules)))
	d.notifier.SendStartupNotification(d.shutdownCtx)

	<-d.shutdownCtx.Done()

	d.logger.Info("daemon shutting down")
	d.notifier.SendShutdownNotification(context.Background())

	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// IsRunning returns whether the daemon is running
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// RunCheck executes one scheduled check
func (d *Daemon) RunCheck(ctx context.Context, job *CheckJob) error {
	var err error
	switch job.Check {
	case config.CheckJunk:
		_, err = d.RunJunkCheck(ctx, job)
	case config.CheckRAM:
		_, err = d.RunRAMCheck(ctx, job)
	default:
		err = fmt.Errorf("unknown check %q", job.Check)
	}
	d.metrics.RecordCheck(job.Check, err)
	return err
}

// JunkReport is the outcome of a junk check
type JunkReport struct {
	Skipped   bool
	Scan      *scanner.ScanResult
	Threshold int64
	Exceeded  bool
	Clean     *cleaner.CleanResult
}

// RunJunkCheck scans the device and notifies when junk reaches the job's
// threshold. When it does and the job lists auto-clean types, those types
// are deleted without asking.
func (d *Daemon) RunJunkCheck(ctx context.Context, job *CheckJob) (*JunkReport, error) {
	report := &JunkReport{}

	enabled, err := d.engine.Store.GetBool(ctx, store.PrefJunkReminder, true)
	if err != nil {
		return nil, err
	}
	if !enabled {
		d.logger.Info("junk reminder disabled, skipping", zap.String("job", job.Name))
		report.Skipped = true
		return report, nil
	}

	if job.JunkThreshold != "" {
		report.Threshold, err = utils.ParseSize(job.JunkThreshold)
		if err != nil {
			return nil, fmt.Errorf("invalid junk threshold: %w", err)
		}
	}

	start := time.Now()
	s, err := d.engine.Scan(ctx)
	if err != nil {
		d.metrics.RecordScan(nil, time.Since(start), err)
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	state := s.State()
	report.Scan = state.Result()
	d.metrics.RecordScan(report.Scan, time.Since(start), state.Err())

	if errors.Is(state.Err(), context.Canceled) || errors.Is(state.Err(), context.DeadlineExceeded) {
		return report, state.Err()
	}

	d.logger.Info("junk check finished",
		zap.String("job", job.Name),
		zap.Int("files", report.Scan.TotalCount),
		zap.Int64("bytes", report.Scan.TotalSize),
		zap.Int64("threshold", report.Threshold))

	if report.Scan.TotalSize < report.Threshold || report.Scan.TotalCount == 0 {
		return report, nil
	}
	report.Exceeded = true
	d.notifier.SendJunkNotification(ctx, job, report.Scan)

	if len(job.AutoClean) == 0 {
		return report, nil
	}

	types, err := scanner.ParseFileTypes(job.AutoClean)
	if err != nil {
		return report, fmt.Errorf("invalid auto_clean types: %w", err)
	}

	jobConfig := d.createJobConfig(job)
	c := cleaner.New(jobConfig, d.logger)
	c.SetIndex(d.engine.Index(ctx))
	c.SetHistory(d.engine.Store)

	report.Clean = c.Delete(ctx, state, types)
	d.metrics.RecordClean(report.Clean)
	d.notifier.SendCleanNotification(ctx, job, report.Clean)

	return report, nil
}

// RAMReport is the outcome of a RAM check
type RAMReport struct {
	Skipped bool
	Memory  device.Memory
	Low     bool
}

// RunRAMCheck reads memory (and battery, for metrics) and notifies when
// available memory drops under the job's minimum
func (d *Daemon) RunRAMCheck(ctx context.Context, job *CheckJob) (*RAMReport, error) {
	report := &RAMReport{}

	enabled, err := d.engine.Store.GetBool(ctx, store.PrefRAMCheck, true)
	if err != nil {
		return nil, err
	}
	if !enabled {
		d.logger.Info("ram check disabled, skipping", zap.String("job", job.Name))
		report.Skipped = true
		return report, nil
	}

	reader := d.engine.Device()
	report.Memory, err = reader.ReadMemory()
	if err != nil {
		return nil, err
	}
	d.metrics.RecordMemory(report.Memory)

	if battery, err := reader.ReadBattery(); err == nil {
		d.metrics.RecordBattery(battery)
	} else if !errors.Is(err, device.ErrNoBattery) {
		d.logger.Debug("battery read failed", zap.Error(err))
	}

	avail := report.Memory.AvailablePercent()
	d.logger.Info("ram check finished",
		zap.String("job", job.Name),
		zap.Float64("available_percent", avail),
		zap.Float64("min_percent", job.MinAvailablePercent))

	if avail < job.MinAvailablePercent {
		report.Low = true
		d.notifier.SendLowMemoryNotification(ctx, job, report.Memory)
	}

	return report, nil
}

// createJobConfig copies the base config with the job's overrides
func (d *Daemon) createJobConfig(job *CheckJob) *config.Config {
	cfg := *d.config
	if job.DryRun {
		cfg.DryRun = true
	}
	return &cfg
}

func (d *Daemon) startMetricsServer() error {
	addr := d.config.Daemon.MetricsAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	d.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		d.logger.Info("metrics server listening", zap.String("addr", addr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

func (d *Daemon) stopMetricsServer() {
	if d.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.logger.Warn("metrics server shutdown", zap.Error(err))
	}
	d.server = nil
}

// setupSignalHandlers stops the daemon on SIGINT or SIGTERM. SIGHUP only logs.
func (d *Daemon) setupSignalHandlers() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					d.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
					d.Stop()
				case syscall.SIGHUP:
					d.logger.Info("received SIGHUP, restart the daemon to reload configuration")
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func (d *Daemon) pidFile() string {
	return d.config.Daemon.PidFile
}

func (d *Daemon) lockFile() string {
	return d.pidFile() + ".lock"
}

// acquireLock creates the lock file exclusively
func (d *Daemon) acquireLock() error {
	if d.pidFile() == "" {
		return nil
	}

	file, err := os.OpenFile(d.lockFile(), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("daemon already running (lock file exists)")
		}
		return err
	}

	_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	file.Close()
	return err
}

func (d *Daemon) releaseLock() {
	if d.pidFile() == "" {
		return
	}
	os.Remove(d.lockFile())
}

func (d *Daemon) writePidFile() error {
	if d.pidFile() == "" {
		return nil
	}
	return os.WriteFile(d.pidFile(), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func (d *Daemon) removePidFile() {
	if d.pidFile() == "" {
		return
	}
	os.Remove(d.pidFile())
}

// ReadPid returns the pid stored in a pid file
func ReadPid(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid file %s: %w", pidFile, err)
	}
	return pid, nil
}

// ProcessRunning reports whether the process named by pidFile is alive
func ProcessRunning(pidFile string) bool {
	pid, err := ReadPid(pidFile)
	if err != nil {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
