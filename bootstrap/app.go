// Package bootstrap wires the detector's independent components
// (listener, cleanup scheduler, alert queue drain, optional metrics
// server) into one process with a single phased shutdown path.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"idsrs/config"
	"idsrs/core"
	"idsrs/detect"
	"idsrs/display"
	"idsrs/ingest"
	"idsrs/notify"
)

// shutdownGracePeriod is how long in-flight alert sends are allowed to
// finish before being abandoned, per spec.md §5.
const shutdownGracePeriod = 5 * time.Second

// App owns every long-running component and the logger/config they
// share.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	sugar  *zap.SugaredLogger

	detector *detect.Detector
	alerter  *notify.Alerter
	listener *ingest.UDPListener

	metricsSrv *http.Server

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewApp assembles an App from a loaded config and logger. Apart from
// the SIEM sink's UDP dial, which resolves the collector address, it
// performs no I/O; sockets are bound and goroutines started in Start.
func NewApp(cfg *config.Config, logger *zap.Logger, sugar *zap.SugaredLogger) (*App, error) {
	parser, err := ingestParser(cfg.Network.Parser)
	if err != nil {
		return nil, err
	}

	detector := detect.New(detect.Config{
		FastThreshold: cfg.Detection.FastScan.PortThreshold,
		FastWindow:    cfg.Detection.FastScan.TimeWindow,
		SlowThreshold: cfg.Detection.SlowScan.PortThreshold,
		SlowWindow:    cfg.Detection.SlowScan.TimeWindow,
		AlertCooldown: cfg.Detection.AlertCooldown,
		MaxEntryAge:   cfg.Cleanup.MaxEntryAge,
	}, core.RealClock{})

	alerter, err := notify.NewAlerter(notify.Config{
		SIEM: notify.SIEMConfig{
			Enabled: cfg.Alerting.SIEM.Enabled,
			Host:    cfg.Alerting.SIEM.Host,
			Port:    cfg.Alerting.SIEM.Port,
		},
		Email: notify.EmailConfig{
			Enabled:    cfg.Alerting.Email.Enabled,
			SMTPServer: cfg.Alerting.Email.SMTPServer,
			Port:       cfg.Alerting.Email.Port,
			TLS:        cfg.Alerting.Email.TLS,
			From:       cfg.Alerting.Email.From,
			To:         cfg.Alerting.Email.To,
			Username:   cfg.Alerting.Email.Username,
			Password:   cfg.Alerting.Email.Password,
		},
	}, sugar)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: alerter: %w", err)
	}

	listener := ingest.NewUDPListener(cfg.Network, parser, detector, alerter, sugar)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		sugar:    sugar,
		detector: detector,
		alerter:  alerter,
		listener: listener,
	}

	if cfg.Metrics.Enabled {
		app.metricsSrv = app.newMetricsServer(cfg.Metrics.ListenAddress)
	}

	return app, nil
}

func ingestParser(name string) (ingest.Parser, error) {
	return ingest.NewParser(name)
}

func (a *App) newMetricsServer(addr string) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: router}
}

// Start launches every background component: the UDP listener, the
// cleanup scheduler, the alerter's email worker, and (if enabled) the
// metrics server. It returns once every goroutine has been launched;
// it does not block.
func (a *App) Start(ctx context.Context) {
	display.PrintBanner(a.cfg)

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.listener.ListenAndServe(runCtx); err != nil {
			a.sugar.Errorw("listener exited", "err", err)
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.detector.RunCleanup(runCtx, a.cfg.Cleanup.Interval, func(removed, tracked int) {
			display.LogStats(tracked, removed)
		})
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.alerter.Run(runCtx)
	}()

	if a.metricsSrv != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.sugar.Infow("metrics server started", "addr", a.metricsSrv.Addr)
			if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.sugar.Errorw("metrics server exited", "err", err)
			}
		}()
	}
}

// WaitForShutdown blocks until os.Interrupt or SIGTERM, then runs
// Shutdown.
func (a *App) WaitForShutdown(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	a.sugar.Info("shutdown signal received")
	a.Shutdown()
}

// Shutdown stops every component in dependency order: the listener
// first (so no new events arrive), then the cleanup scheduler, then the
// alert queue drain, then the metrics server, allowing a brief grace
// period for in-flight alert sends before abandoning them.
func (a *App) Shutdown() {
	_ = a.listener.Close()
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGracePeriod):
		a.sugar.Warn("shutdown grace period elapsed, abandoning in-flight work")
	}

	if a.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(shutdownCtx)
	}
	_ = a.alerter.Close()
	_ = a.logger.Sync()
}
