// Package daemon runs the long-lived watchdog process with its status API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/gateway"
	"github.com/akosykh/vpngw/internal/netfilter"
	"github.com/akosykh/vpngw/internal/netstate"
	"github.com/akosykh/vpngw/internal/platform"
	"github.com/akosykh/vpngw/internal/watchdog"
)

// Daemon ties the watchdog loop to process lifecycle concerns: pid file,
// signals, and the local status HTTP API.
type Daemon struct {
	cfg      *config.Config
	watchdog *watchdog.Watchdog
	logger   *slog.Logger
	logBuf   *platform.LogBuffer
	version  string
	started  time.Time
}

// New wires the watchdog against the live system.
func New(cfg *config.Config, logger *slog.Logger, logBuf *platform.LogBuffer, version string) (*Daemon, error) {
	state, err := netstate.New(cfg.Network.TunnelPattern, cfg.Network.EgressInterface)
	if err != nil {
		return nil, err
	}
	fw, err := netfilter.NewIPTables()
	if err != nil {
		return nil, err
	}
	rules := gateway.NewRules(fw, cfg.Network.LANNetwork, platform.ResolvConfFile, cfg.DNS.Fallback, logger)
	wd := watchdog.New(state, rules, cfg.Watchdog.PollIntervalDuration(), cfg.Watchdog.WarnAfterMisses, logger)

	return &Daemon{
		cfg:      cfg,
		watchdog: wd,
		logger:   logger,
		logBuf:   logBuf,
		version:  version,
	}, nil
}

// Run blocks until a termination signal arrives. The watchdog loop runs in
// the foreground; the status server is best-effort.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	if err := os.WriteFile(platform.PidFile, fmt.Appendf(nil, "%d", os.Getpid()), 0o644); err != nil {
		d.logger.Warn("failed to write pid file", "error", err)
	}
	defer os.Remove(platform.PidFile)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var httpServer *http.Server
	if listen := d.cfg.Daemon.StatusListen; listen != "" {
		httpServer = &http.Server{Addr: listen, Handler: d.routes()}
		go func() {
			d.logger.Info("status API listening", "listen", listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("status server error", "error", err)
			}
		}()
	}

	err := d.watchdog.Run(ctx)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
