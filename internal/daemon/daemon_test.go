package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
	"github.com/fenilsonani/cleaner-toolbox/internal/engine"
	"github.com/fenilsonani/cleaner-toolbox/internal/store"
	"github.com/fenilsonani/cleaner-toolbox/internal/testutil"
)

type daemonFixture struct {
	*testutil.StorageFixture
	cfg     *config.Config
	eng     *engine.Engine
	webhook *webhookRecorder
	proc    string
}

func newDaemonFixture(t *testing.T) *daemonFixture {
	f := testutil.NewStorageFixture(t)
	tmp := t.TempDir()
	rec, srv := newWebhookRecorder(t)

	cfg := config.GetDefault()
	cfg.StorageRoot = f.Root
	cfg.DatabasePath = filepath.Join(tmp, "toolbox.db")
	cfg.ManifestDir = filepath.Join(tmp, "manifests")
	cfg.Device.ProcRoot = filepath.Join(tmp, "proc")
	cfg.Device.SysRoot = filepath.Join(tmp, "sys")
	cfg.Daemon = config.GetDefaultDaemon()
	cfg.Daemon.PidFile = filepath.Join(tmp, "toolboxd.pid")
	cfg.Daemon.Notifications = *notifyConfig(srv.URL)

	eng, err := engine.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	return &daemonFixture{StorageFixture: f, cfg: cfg, eng: eng, webhook: rec, proc: cfg.Device.ProcRoot}
}

func (fx *daemonFixture) writeMeminfo(t *testing.T, totalKB, availKB int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(fx.proc, 0755))
	content := fmt.Sprintf("MemTotal: %d kB\nMemFree: %d kB\nMemAvailable: %d kB\n", totalKB, availKB/2, availKB)
	require.NoError(t, os.WriteFile(filepath.Join(fx.proc, "meminfo"), []byte(content), 0644))
}

func (fx *daemonFixture) daemon(t *testing.T) *Daemon {
	t.Helper()
	d, err := New(fx.eng, nil)
	require.NoError(t, err)
	return d
}

func TestNewRequiresEnabledDaemon(t *testing.T) {
	fx := newDaemonFixture(t)
	fx.cfg.Daemon.Enabled = false
	_, err := New(fx.eng, nil)
	assert.Error(t, err)
}

func TestJunkCheckNotifiesAndAutoCleans(t *testing.T) {
	fx := newDaemonFixture(t)
	tmpFile := fx.CreateSized("Download/a.tmp", 600)
	apk := fx.CreateSized("Download/b.apk", 2000)
	d := fx.daemon(t)

	job := &CheckJob{CheckSchedule: config.CheckSchedule{
		Name:          "junk-reminder",
		Check:         config.CheckJunk,
		JunkThreshold: "1KB",
		AutoClean:     []string{"temp"},
	}}

	report, err := d.RunJunkCheck(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, report.Exceeded)
	assert.Equal(t, int64(1024), report.Threshold)
	assert.Equal(t, int64(2600), report.Scan.TotalSize)

	require.NotNil(t, report.Clean)
	assert.Equal(t, []string{tmpFile}, report.Clean.DeletedFiles)
	fx.AssertFileNotExists(tmpFile)
	fx.AssertFileExists(apk)

	assert.Equal(t, []string{"junk", "clean"}, fx.webhook.types())

	history, err := fx.eng.Store.ListHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestJunkCheckDryRunKeepsFiles(t *testing.T) {
	fx := newDaemonFixture(t)
	tmpFile := fx.CreateSized("Download/a.tmp", 4096)
	d := fx.daemon(t)

	job := &CheckJob{CheckSchedule: config.CheckSchedule{
		Name: "junk", Check: config.CheckJunk, JunkThreshold: "1KB", AutoClean: []string{"temp"}, DryRun: true,
	}}
	report, err := d.RunJunkCheck(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, report.Clean)
	assert.True(t, report.Clean.DryRun)
	fx.AssertFileExists(tmpFile)
	assert.False(t, fx.cfg.DryRun, "job overrides never leak into the base config")
}

func TestJunkCheckBelowThreshold(t *testing.T) {
	fx := newDaemonFixture(t)
	fx.CreateSized("Download/a.tmp", 100)
	d := fx.daemon(t)

	job := &CheckJob{CheckSchedule: config.CheckSchedule{
		Name: "junk", Check: config.CheckJunk, JunkThreshold: "200MB", AutoClean: []string{"temp"},
	}}
	report, err := d.RunJunkCheck(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, report.Exceeded)
	assert.Nil(t, report.Clean)
	assert.Empty(t, fx.webhook.types())
}

func TestJunkCheckDisabledByPreference(t *testing.T) {
	fx := newDaemonFixture(t)
	fx.CreateSized("Download/a.tmp", 4096)
	require.NoError(t, fx.eng.Store.SetBool(context.Background(), store.PrefJunkReminder, false))
	d := fx.daemon(t)

	report, err := d.RunJunkCheck(context.Background(), &CheckJob{CheckSchedule: config.CheckSchedule{Name: "junk", Check: config.CheckJunk}})
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Nil(t, report.Scan)
	assert.Empty(t, fx.webhook.types())
}

func TestJunkCheckInvalidThreshold(t *testing.T) {
	fx := newDaemonFixture(t)
	d := fx.daemon(t)
	_, err := d.RunJunkCheck(context.Background(), &CheckJob{CheckSchedule: config.CheckSchedule{
		Name: "junk", Check: config.CheckJunk, JunkThreshold: "lots",
	}})
	assert.Error(t, err)
}

func TestRAMCheck(t *testing.T) {
	fx := newDaemonFixture(t)
	d := fx.daemon(t)
	job := &CheckJob{CheckSchedule: config.CheckSchedule{Name: "ram", Check: config.CheckRAM, MinAvailablePercent: 15}}
	ctx := context.Background()

	fx.writeMeminfo(t, 1000000, 500000)
	report, err := d.RunRAMCheck(ctx, job)
	require.NoError(t, err)
	assert.False(t, report.Low)
	assert.Empty(t, fx.webhook.types())

	fx.writeMeminfo(t, 1000000, 100000)
	report, err = d.RunRAMCheck(ctx, job)
	require.NoError(t, err)
	assert.True(t, report.Low)
	assert.InDelta(t, 10.0, report.Memory.AvailablePercent(), 0.01)
	assert.Equal(t, []string{"low_memory"}, fx.webhook.types())

	require.NoError(t, fx.eng.Store.SetBool(ctx, store.PrefRAMCheck, false))
	report, err = d.RunRAMCheck(ctx, job)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestRunCheckDispatch(t *testing.T) {
	fx := newDaemonFixture(t)
	d := fx.daemon(t)

	err := d.RunCheck(context.Background(), &CheckJob{CheckSchedule: config.CheckSchedule{Name: "x", Check: "battery"}})
	assert.ErrorContains(t, err, "unknown check")

	err = d.RunCheck(context.Background(), &CheckJob{CheckSchedule: config.CheckSchedule{Name: "ram", Check: config.CheckRAM}})
	assert.Error(t, err, "meminfo is missing")
}

func TestStartStop(t *testing.T) {
	fx := newDaemonFixture(t)
	fx.cfg.Daemon.Notifications.Enabled = false
	d := fx.daemon(t)

	done := make(chan error, 1)
	go func() { done <- d.Start() }()

	pidFile := fx.cfg.Daemon.PidFile
	require.Eventually(t, func() bool {
		_, err := os.Stat(pidFile)
		return err == nil && d.IsRunning()
	}, 5*time.Second, 10*time.Millisecond)

	pid, err := ReadPid(pidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, ProcessRunning(pidFile))
	assert.Len(t, d.Scheduler().ListJobs(), 2)

	d.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("daemon did not stop")
	}

	assert.False(t, d.IsRunning())
	fx.AssertFileNotExists(pidFile)
	fx.AssertFileNotExists(pidFile + ".lock")
}

func TestStartRefusesExistingLock(t *testing.T) {
	fx := newDaemonFixture(t)
	require.NoError(t, os.WriteFile(fx.cfg.Daemon.PidFile+".lock", []byte("1\n"), 0644))

	err := fx.daemon(t).Start()
	assert.ErrorContains(t, err, "already running")
}

func TestProcessRunningBadPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))
	assert.False(t, ProcessRunning(path))
	assert.False(t, ProcessRunning(filepath.Join(t.TempDir(), "missing.pid")))
}
