package notify

import (
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"idsrs/core"
)

func listenUDP(t *testing.T) (*net.UDPConn, int) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return conn, port
}

func TestAlerterSendsSIEMDatagram(t *testing.T) {
	conn, port := listenUDP(t)
	logger := zap.NewNop().Sugar()

	a, err := NewAlerter(Config{SIEM: SIEMConfig{Enabled: true, Host: "127.0.0.1", Port: port}}, logger)
	require.NoError(t, err)
	defer a.Close()

	a.Send(core.Alert{
		ID:              "test-alert-id",
		Kind:            core.FastScan,
		SourceIP:        "192.168.11.7",
		UniquePortCount: 16,
		PortsSample:     []int{1000, 1001, 1002},
		DetectedAt:      time.Now(),
	})

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)

	line := string(buf[:n])
	assert.True(t, strings.HasPrefix(line, "IDS-RS ALERT id=test-alert-id kind=FastScan src=192.168.11.7 ports=16"))
	assert.Contains(t, line, "sample=1000,1001,1002")
}

func TestFormatSIEMLineTruncatesUnderMTU(t *testing.T) {
	ports := make([]int, 0, 500)
	for p := 1; p <= 500; p++ {
		ports = append(ports, p)
	}
	line := formatSIEMLine(core.Alert{
		Kind:            core.FastScan,
		SourceIP:        "10.0.0.1",
		UniquePortCount: len(ports),
		PortsSample:     ports,
	})
	assert.LessOrEqual(t, len(line), maxSIEMDatagramBytes)
}

func TestAlerterDisabledSinksAreNoop(t *testing.T) {
	logger := zap.NewNop().Sugar()
	a, err := NewAlerter(Config{}, logger)
	require.NoError(t, err)
	defer a.Close()

	assert.NotPanics(t, func() {
		a.Send(core.Alert{Kind: core.FastScan, SourceIP: "1.2.3.4"})
	})
}
