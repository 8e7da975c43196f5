package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsrs/core"
)

func testConfig() Config {
	return Config{
		FastThreshold: 15,
		FastWindow:    10 * time.Second,
		SlowThreshold: 30,
		SlowWindow:    5 * time.Minute,
		AlertCooldown: 300 * time.Second,
		MaxEntryAge:   600 * time.Second,
	}
}

func drop(ip string, port int, at time.Time) *core.Event {
	return &core.Event{SourceIP: ip, DestPort: port, Action: core.ActionDrop, ReceivedAt: at}
}

func TestFastScanTriggersOnceOnThresholdCrossing(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	var alerts []core.Alert
	for i := 0; i < 20; i++ {
		got := d.Observe(drop("192.168.11.7", 1000+i, clock.Now()))
		alerts = append(alerts, got...)
		clock.Advance(100 * time.Millisecond)
	}

	require.Len(t, alerts, 1)
	assert.Equal(t, core.FastScan, alerts[0].Kind)
	assert.Equal(t, 16, alerts[0].UniquePortCount)
}

func TestCooldownSuppressesSecondAlert(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	for i := 0; i < 20; i++ {
		d.Observe(drop("192.168.11.7", 1000+i, clock.Now()))
		clock.Advance(100 * time.Millisecond)
	}

	var second []core.Alert
	for i := 0; i < 20; i++ {
		second = append(second, d.Observe(drop("192.168.11.7", 2000+i, clock.Now()))...)
		clock.Advance(100 * time.Millisecond)
	}

	assert.Empty(t, second)
}

func TestSlowScanTriggersWithoutFastScan(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	var alerts []core.Alert
	for i := 0; i < 40; i++ {
		alerts = append(alerts, d.Observe(drop("10.1.1.1", 8000+i, clock.Now()))...)
		clock.Advance(7 * time.Second)
	}

	require.Len(t, alerts, 1)
	assert.Equal(t, core.SlowScan, alerts[0].Kind)
}

func TestNormalTrafficIsSilent(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	ports := []int{80, 443, 22, 53, 25}
	var alerts []core.Alert
	for _, p := range ports {
		alerts = append(alerts, d.Observe(drop("192.168.11.7", p, clock.Now()))...)
		clock.Advance(400 * time.Millisecond)
	}

	assert.Empty(t, alerts)
}

func TestIsolationBetweenSources(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	var alerts []core.Alert
	for i := 0; i < 14; i++ {
		alerts = append(alerts, d.Observe(drop("10.0.0.1", 1000+i, clock.Now()))...)
		alerts = append(alerts, d.Observe(drop("10.0.0.2", 2000+i, clock.Now()))...)
		clock.Advance(300 * time.Millisecond)
	}

	assert.Empty(t, alerts)
}

func TestCleanupReclaimsStaleSources(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	for i := 0; i < 14; i++ {
		d.Observe(drop("10.0.0.3", 3000+i, clock.Now()))
		clock.Advance(50 * time.Millisecond)
	}
	require.Equal(t, 1, d.TrackedSources())

	clock.Advance(601 * time.Second)
	removed := d.Cleanup(clock.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, d.TrackedSources())

	d.Observe(drop("10.0.0.3", 9999, clock.Now()))
	assert.Equal(t, 1, d.TrackedSources())
}

func TestRepeatedDropsDoNotInflateDistinctPortCount(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	cfg := testConfig()
	cfg.FastThreshold = 2
	d := New(cfg, clock)

	var alerts []core.Alert
	for i := 0; i < 10; i++ {
		alerts = append(alerts, d.Observe(drop("10.0.0.9", 80, clock.Now()))...)
		clock.Advance(100 * time.Millisecond)
	}

	assert.Empty(t, alerts)
	assert.Equal(t, 1, d.TrackedSources())
}

func TestNonAdmissibleEventsNeverContributeToPortSet(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	accepted := &core.Event{SourceIP: "10.0.0.5", DestPort: 80, Action: core.ActionAccept, ReceivedAt: clock.Now()}
	portless := &core.Event{SourceIP: "10.0.0.5", Action: core.ActionDrop, ReceivedAt: clock.Now()}

	assert.Empty(t, d.Observe(accepted))
	assert.Empty(t, d.Observe(portless))
	assert.Equal(t, 0, d.TrackedSources())
}

func TestRunCleanupStopsOnContextCancel(t *testing.T) {
	clock := core.NewFakeClock(time.Now())
	d := New(testConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.RunCleanup(ctx, 5*time.Millisecond, nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop after context cancellation")
	}
}
