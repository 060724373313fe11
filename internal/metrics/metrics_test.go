package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordScan(t *testing.T) {
	m := New()
	result := scanner.NewScanResult([]scanner.UnnecessaryFile{
		{Path: "/a.tmp", Size: 100, Type: scanner.Temp},
		{Path: "/b.apk", Size: 2000, Type: scanner.ObsoleteAPK},
		{Path: "/c.tmp", Size: 50, Type: scanner.Temp},
	})

	m.RecordScan(result, 2*time.Second, nil)
	m.RecordScan(nil, time.Second, errors.New("boom"))

	out := scrape(t, m)
	assert.Contains(t, out, `toolbox_junk_bytes{type="temp"} 150`)
	assert.Contains(t, out, `toolbox_junk_bytes{type="obsolete_apk"} 2000`)
	assert.Contains(t, out, `toolbox_junk_bytes{type="log"} 0`)
	assert.Contains(t, out, `toolbox_junk_files{type="temp"} 2`)
	assert.Contains(t, out, `toolbox_scans_total{status="success"} 1`)
	assert.Contains(t, out, `toolbox_scans_total{status="error"} 1`)
	assert.Contains(t, out, "toolbox_scan_duration_seconds_count 2")
}

func TestRecordClean(t *testing.T) {
	m := New()
	m.RecordClean(&cleaner.CleanResult{DeletedFiles: []string{"/a", "/b"}, DeletedSize: 300, Failed: 1})
	m.RecordClean(&cleaner.CleanResult{DeletedFiles: []string{"/c"}, DeletedSize: 1000, DryRun: true})
	m.RecordClean(nil)

	out := scrape(t, m)
	assert.Contains(t, out, "toolbox_clean_files_deleted_total 2")
	assert.Contains(t, out, "toolbox_clean_bytes_freed_total 300")
	assert.Contains(t, out, "toolbox_clean_failures_total 1")
}

func TestRecordDeviceAndChecks(t *testing.T) {
	m := New()
	m.RecordMemory(device.Memory{Total: 4096, Available: 1024})
	m.RecordBattery(device.Battery{Capacity: 55, TempC: 30.5})
	m.RecordCheck("ram", nil)
	m.RecordNotification(errors.New("timeout"))

	out := scrape(t, m)
	assert.Contains(t, out, "toolbox_memory_total_bytes 4096")
	assert.Contains(t, out, "toolbox_memory_available_bytes 1024")
	assert.Contains(t, out, "toolbox_battery_capacity_percent 55")
	assert.Contains(t, out, "toolbox_battery_temperature_celsius 30.5")
	assert.Contains(t, out, `toolbox_checks_total{check="ram",status="success"} 1`)
	assert.Contains(t, out, `toolbox_notifications_total{status="error"} 1`)
}
