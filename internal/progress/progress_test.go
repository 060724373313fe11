package progress

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesUpdates(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.UpdateScanProgress(&ScanProgress{Phase: PhaseScanning, Source: "images", Percent: 40})

	select {
	case msg := <-ch:
		sp, ok := msg.(*ScanProgress)
		require.True(t, ok)
		assert.Equal(t, "images", sp.Source)
		assert.Equal(t, 40, sp.Percent)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	assert.Equal(t, 40, pr.GetScanProgress().Percent)
}

func TestUpdateDoesNotBlockOnFullListener(t *testing.T) {
	pr := NewProgressReporter()
	_ = pr.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.UpdateCleanProgress(&CleanProgress{Phase: PhaseCleaning, Processed: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("UpdateCleanProgress blocked on a full listener")
	}
	assert.Equal(t, 99, pr.GetCleanProgress().Processed)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()
	pr.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// no listeners left, must not panic
	pr.UpdateScanProgress(&ScanProgress{Phase: PhaseComplete})
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 100, Percent(3, 3))
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "Initializing...", FormatScanProgress(nil))
	assert.Equal(t, "Preparing...", FormatCleanProgress(nil))

	s := FormatScanProgress(&ScanProgress{Phase: PhaseScanning, Source: "downloads", Percent: 20, FilesFound: 3, StartTime: time.Now()})
	assert.True(t, strings.HasPrefix(s, "Scanning downloads... 20%"), s)

	c := FormatCleanProgress(&CleanProgress{Phase: PhaseCleaning, Processed: 1, TotalFiles: 4, Percent: 25, FailedFiles: 1, StartTime: time.Now()})
	assert.Contains(t, c, "1/4 files (25%)")
	assert.Contains(t, c, "1 failed")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatDuration(5*time.Second))
	assert.Equal(t, "2m3s", FormatDuration(2*time.Minute+3*time.Second))
	assert.Equal(t, "1h0m1s", FormatDuration(time.Hour+time.Second))
}
