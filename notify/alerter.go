// Package notify fans an Alert out to independently-failing sinks: a
// SIEM collector over UDP and, optionally, SMTP email. Email I/O is
// decoupled from the caller via a bounded queue so a slow mail server
// never stalls the ingest path.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"idsrs/core"
	"idsrs/metrics"
)

// queueCapacity bounds the email worker's backlog. When full, the
// oldest pending alert is dropped and logged rather than blocking the
// sender.
const queueCapacity = 256

// maxSIEMDatagramBytes keeps the SIEM line under a conservative MTU so
// a single UDP send never fragments.
const maxSIEMDatagramBytes = 1200

// SIEMConfig configures the UDP SIEM sink.
type SIEMConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// EmailConfig configures the SMTP email sink.
type EmailConfig struct {
	Enabled    bool
	SMTPServer string
	Port       int
	TLS        bool
	From       string
	To         []string
	Username   string
	Password   string
}

// Config is the Alerter's full dependency set, mapping directly onto
// spec.md's alerting configuration section.
type Config struct {
	SIEM  SIEMConfig
	Email EmailConfig
}

// Alerter dispatches Alerts to every enabled sink. Send never blocks on
// SMTP I/O: email delivery happens on a worker goroutine draining a
// bounded queue started by Run.
type Alerter struct {
	cfg    Config
	logger *zap.SugaredLogger

	siemConn net.Conn
	siemAddr string

	emailCircuit *smtpCircuit
	queue        chan core.Alert
}

// NewAlerter constructs an Alerter. The SIEM sink dials its UDP
// destination eagerly (UDP "dial" only resolves the address; no
// handshake occurs) so that a misconfigured host fails fast at startup
// logging rather than silently on every alert.
func NewAlerter(cfg Config, logger *zap.SugaredLogger) (*Alerter, error) {
	a := &Alerter{cfg: cfg, logger: logger}

	if cfg.SIEM.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.SIEM.Host, cfg.SIEM.Port)
		conn, err := net.Dial("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("notify: dial siem %s: %w", addr, err)
		}
		a.siemConn = conn
		a.siemAddr = addr
	}

	if cfg.Email.Enabled {
		a.emailCircuit = newSMTPCircuit(3, 60*time.Second)
		a.queue = make(chan core.Alert, queueCapacity)
	}

	return a, nil
}

// Send dispatches alert to every enabled sink. The SIEM send happens
// inline (non-blocking in practice, a single UDP write); the email send
// is enqueued for the worker started by Run.
func (a *Alerter) Send(alert core.Alert) {
	if a.cfg.SIEM.Enabled {
		if err := a.sendSIEM(alert); err != nil {
			a.logger.Warnw("siem send failed", "source_ip", alert.SourceIP, "err", err)
			metrics.AlertSinkErrors.WithLabelValues("siem").Inc()
		}
	}

	if a.cfg.Email.Enabled {
		select {
		case a.queue <- alert:
		default:
			select {
			case <-a.queue:
				a.logger.Warnw("email queue full, dropped oldest pending alert")
			default:
			}
			select {
			case a.queue <- alert:
			default:
				a.logger.Warnw("email queue full, dropping alert", "source_ip", alert.SourceIP)
			}
		}
	}
}

// Run drains the email queue until ctx is canceled. It is the Alerter's
// only goroutine-owning method; callers register it on their own
// WaitGroup the way the rest of this system's background loops are run.
func (a *Alerter) Run(ctx context.Context) {
	if !a.cfg.Email.Enabled {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-a.queue:
			if err := a.emailCircuit.ReadyToSend(); err != nil {
				a.logger.Warnw("email sink down, dropping alert", "source_ip", alert.SourceIP, "err", err)
				metrics.AlertSinkErrors.WithLabelValues("email").Inc()
				continue
			}
			err := a.sendEmail(alert)
			a.emailCircuit.RecordResult(err)
			if err != nil {
				a.logger.Warnw("email send failed", "source_ip", alert.SourceIP, "err", err)
				metrics.AlertSinkErrors.WithLabelValues("email").Inc()
			}
		}
	}
}

// Close releases the SIEM UDP socket.
func (a *Alerter) Close() error {
	if a.siemConn != nil {
		return a.siemConn.Close()
	}
	return nil
}

// sendSIEM formats and transmits one UDP datagram per alert:
// "IDS-RS ALERT id=<alert-id> kind=<kind> src=<ip> ports=<N> sample=<p1,p2,...>".
func (a *Alerter) sendSIEM(alert core.Alert) error {
	line := formatSIEMLine(alert)
	_, err := a.siemConn.Write([]byte(line))
	return err
}

func formatSIEMLine(alert core.Alert) string {
	sample := formatPortSample(alert.PortsSample)
	line := fmt.Sprintf("IDS-RS ALERT id=%s kind=%s src=%s ports=%d sample=%s",
		alert.ID, alert.Kind, alert.SourceIP, alert.UniquePortCount, sample)
	for len(line) > maxSIEMDatagramBytes && len(sample) > 0 {
		sample = truncatePortSample(sample)
		line = fmt.Sprintf("IDS-RS ALERT id=%s kind=%s src=%s ports=%d sample=%s",
			alert.ID, alert.Kind, alert.SourceIP, alert.UniquePortCount, sample)
	}
	return line
}

func formatPortSample(ports []int) string {
	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, fmt.Sprintf("%d", p))
	}
	return strings.Join(parts, ",")
}

func truncatePortSample(sample string) string {
	idx := strings.LastIndexByte(sample, ',')
	if idx < 0 {
		return ""
	}
	return sample[:idx]
}

// sendEmail submits one message per alert via SMTP, with STARTTLS and a
// layered auth fallback: PLAIN over TLS, then an explicit Dial/StartTLS
// sequence if the one-shot helper fails (a misbehaving server that
// advertises AUTH but rejects it mid-handshake).
func (a *Alerter) sendEmail(alert core.Alert) error {
	cfg := a.cfg.Email
	subject := fmt.Sprintf("[IDS-RS] %s from %s", alert.Kind, alert.SourceIP)
	body := formatEmailBody(alert)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer)

	if err := smtp.SendMail(addr, auth, cfg.From, cfg.To, []byte(msg.String())); err == nil {
		return nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer client.Close()

	if cfg.TLS {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPServer, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range cfg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data transfer: %w", err)
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data transfer: %w", err)
	}
	return client.Quit()
}

func formatEmailBody(alert core.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s detected from %s\n", alert.Kind, alert.SourceIP)
	fmt.Fprintf(&b, "Alert ID: %s\n", alert.ID)
	fmt.Fprintf(&b, "Detected at: %s\n", alert.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Unique ports: %d\n", alert.UniquePortCount)
	fmt.Fprintf(&b, "Ports: %s\n", formatPortSample(alert.PortsSample))
	return b.String()
}
