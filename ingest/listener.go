package ingest

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"idsrs/config"
	"idsrs/detect"
	"idsrs/display"
	"idsrs/metrics"
	"idsrs/notify"
)

const readBufferSize = 64 * 1024

// UDPListener is the ingress loop: bind once, then for each datagram
// split lines, parse, feed qualifying Events to the Detector, and
// dispatch any resulting Alerts to the display and the Alerter.
// Grounded on the teacher's BaseListener.StartUDP read-deadline/select
// shutdown idiom.
type UDPListener struct {
	addr     string
	parser   Parser
	detector *detect.Detector
	alerter  *notify.Alerter
	logger   *zap.SugaredLogger
	limiter  *perSourceLimiter

	conn   net.PacketConn
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewUDPListener constructs a listener bound to cfg's network section.
func NewUDPListener(cfg config.NetworkConfig, parser Parser, detector *detect.Detector, alerter *notify.Alerter, logger *zap.SugaredLogger) *UDPListener {
	return &UDPListener{
		addr:     fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort),
		parser:   parser,
		detector: detector,
		alerter:  alerter,
		logger:   logger,
		limiter:  newPerSourceLimiter(rate.Limit(500), 1000),
		stopCh:   make(chan struct{}),
	}
}

// ListenAndServe binds the UDP socket and runs the receive loop until
// ctx is canceled or Close is called. A bind failure is fatal to the
// caller per spec.md §7.
func (l *UDPListener) ListenAndServe(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("ingest: bind %s: %w", l.addr, err)
	}
	l.conn = conn
	l.logger.Infow("udp listener started", "addr", l.addr, "parser", l.parser.Name())

	l.wg.Add(1)
	defer l.wg.Done()

	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-l.stopCh:
		}
	}()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.limiter.EvictIdle()
			case <-l.stopCh:
				return
			}
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-l.stopCh:
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			l.logger.Errorw("udp read error", "err", err)
			continue
		}

		sourceAddr, _, _ := net.SplitHostPort(addr.String())
		if !l.limiter.Allow(sourceAddr) {
			metrics.EventsDiscarded.WithLabelValues("rate_limited").Inc()
			continue
		}

		l.handleDatagram(buf[:n], sourceAddr)
	}
}

// handleDatagram splits a single datagram on LF, strips a trailing CR,
// and processes each line in order. Order within a datagram is
// preserved; order across datagrams is not.
func (l *UDPListener) handleDatagram(payload []byte, sourceAddr string) {
	now := time.Now()
	for _, line := range strings.Split(string(payload), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		l.handleLine(line, now)
	}
}

func (l *UDPListener) handleLine(line string, receivedAt time.Time) {
	event, ok := l.parser.Parse(line)
	if !ok {
		metrics.EventsDiscarded.WithLabelValues("unparsed").Inc()
		return
	}
	metrics.EventsIngested.WithLabelValues(l.parser.Name()).Inc()

	event.ReceivedAt = receivedAt
	if !event.Admissible() {
		metrics.EventsDiscarded.WithLabelValues("not_admissible").Inc()
		return
	}

	alerts := l.detector.Observe(event)
	for _, alert := range alerts {
		display.LogAlert(alert)
		if l.alerter != nil {
			l.alerter.Send(alert)
		}
	}
}

// Close stops the receive loop and waits for it to return.
func (l *UDPListener) Close() error {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
	if l.conn != nil {
		l.conn.Close()
	}
	l.wg.Wait()
	return nil
}
