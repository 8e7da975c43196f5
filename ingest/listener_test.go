package ingest

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idsrs/config"
	"idsrs/core"
	"idsrs/detect"
)

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	conn.Close()
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestUDPListenerParsesAndDetects(t *testing.T) {
	port := freePort(t)
	clock := core.NewFakeClock(time.Now())
	detector := detect.New(detect.Config{
		FastThreshold: 2,
		FastWindow:    time.Minute,
		SlowThreshold: 100,
		SlowWindow:    time.Hour,
		AlertCooldown: time.Hour,
		MaxEntryAge:   time.Hour,
	}, clock)

	listener := NewUDPListener(config.NetworkConfig{ListenAddress: "127.0.0.1", ListenPort: port, Parser: "gaia"}, &GaiaParser{}, detector, nil, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)

	client, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer client.Close()

	lines := "Checkpoint: drop 10.0.0.5 proto: tcp; service: 1;\nCheckpoint: drop 10.0.0.5 proto: tcp; service: 2;\nCheckpoint: drop 10.0.0.5 proto: tcp; service: 3;\n"
	_, err = client.Write([]byte(lines))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return detector.TrackedSources() == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not shut down after context cancellation")
	}
}

func TestUDPListenerBindFailureIsFatal(t *testing.T) {
	port := freePort(t)
	blocker, err := net.ListenPacket("udp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer blocker.Close()

	detector := detect.New(detect.Config{
		FastThreshold: 15, FastWindow: time.Second, SlowThreshold: 30,
		SlowWindow: time.Minute, AlertCooldown: time.Minute, MaxEntryAge: time.Minute,
	}, core.RealClock{})
	listener := NewUDPListener(config.NetworkConfig{ListenAddress: "127.0.0.1", ListenPort: port}, &GaiaParser{}, detector, nil, zap.NewNop().Sugar())

	err = listener.ListenAndServe(context.Background())
	assert.Error(t, err)
}
