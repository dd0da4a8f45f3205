package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frames/engine/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a clock the test advances by hand.
func fakeClock(p *Profiler) *time.Time {
	now := time.Unix(1000, 0)
	p.lastTime = now
	p.now = func() time.Time { return now }
	return &now
}

func TestTickLogsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler()
	p.SetLogger(slog.New(slog.NewTextHandler(&out, nil)))
	now := fakeClock(p)

	*now = now.Add(300 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Empty(t, out.String())

	*now = now.Add(800 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, out.String(), "msg=profiler")
	assert.Contains(t, out.String(), "fps=")
	assert.Equal(t, 0, p.frameCount)
}

func TestSampleIncludesExecutorDeltas(t *testing.T) {
	p := NewProfiler()
	stats := executor.FrameStats{Submitted: 10, Skipped: 2, LastEncode: time.Millisecond}
	p.SetStatsSource(func() executor.FrameStats { return stats })

	p.frameCount = 60
	r := p.sample(time.Second)
	assert.InDelta(t, 60.0, r.FPS, 1e-9)
	assert.Equal(t, uint64(10), r.Submitted)
	assert.Equal(t, uint64(2), r.Skipped)
	assert.Equal(t, time.Millisecond, r.LastEncode)

	stats.Submitted, stats.Skipped = 25, 3
	r = p.sample(time.Second)
	assert.Equal(t, uint64(15), r.Submitted)
	assert.Equal(t, uint64(1), r.Skipped)
}

func TestSetInterval(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	require.Equal(t, time.Second, p.updateInterval)
	p.SetInterval(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, p.updateInterval)
}
