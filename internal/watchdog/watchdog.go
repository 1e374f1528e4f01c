// Package watchdog keeps the gateway's NAT/forwarding rules synchronized
// with the currently active VPN tunnel interface. The VPN client may
// renegotiate after a drop and come back with a differently named interface;
// rules referencing the old name silently stop routing.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akosykh/vpngw/internal/gateway"
)

// NetState provides the live interface names, read fresh on every poll.
type NetState interface {
	// TunnelInterface returns the active tunnel interface name, or "" when
	// the tunnel is down.
	TunnelInterface(ctx context.Context) (string, error)

	// DefaultEgress returns the interface carrying the default route, or ""
	// when none exists.
	DefaultEgress(ctx context.Context) (string, error)
}

// Status is a point-in-time snapshot for the daemon's status API.
type Status struct {
	Tunnel            string    `json:"tunnel"`
	Egress            string    `json:"egress"`
	LastApplied       time.Time `json:"last_applied,omitempty"`
	Polls             uint64    `json:"polls"`
	Applies           uint64    `json:"applies"`
	ConsecutiveMisses int       `json:"consecutive_misses"`
}

// Watchdog polls the network state and reapplies rules on tunnel changes.
type Watchdog struct {
	state     NetState
	rules     gateway.Applier
	interval  time.Duration
	warnAfter int
	logger    *slog.Logger

	mu      sync.Mutex
	last    gateway.Binding // last applied binding; Tunnel=="" until first apply
	applied time.Time
	polls   uint64
	applies uint64
	misses  int
	warned  bool
}

// New creates a Watchdog. warnAfter is the number of consecutive polls
// without a usable interface pair before a warning is logged once per
// outage; 0 disables the warning.
func New(state NetState, rules gateway.Applier, interval time.Duration, warnAfter int, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		state:     state,
		rules:     rules,
		interval:  interval,
		warnAfter: warnAfter,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled; that is the only way out. The first
// poll happens immediately so a restart converges without waiting a tick.
func (w *Watchdog) Run(ctx context.Context) error {
	w.logger.Info("watchdog started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll runs one watchdog iteration. Rules are rewritten only when the
// tunnel interface name changed and both names are known; everything else
// is a no-op so an unchanged system is never disturbed.
func (w *Watchdog) poll(ctx context.Context) {
	w.mu.Lock()
	w.polls++
	w.mu.Unlock()

	tunnel, err := w.state.TunnelInterface(ctx)
	if err != nil {
		w.logger.Debug("tunnel lookup failed", "error", err)
		w.miss()
		return
	}
	egress, err := w.state.DefaultEgress(ctx)
	if err != nil {
		w.logger.Debug("egress lookup failed", "error", err)
		w.miss()
		return
	}

	if tunnel == "" || egress == "" {
		// Expected while the VPN reconnects; wait for the next poll.
		w.miss()
		return
	}

	w.mu.Lock()
	prev := w.last.Tunnel
	w.misses = 0
	w.warned = false
	w.mu.Unlock()
	if tunnel == prev {
		return
	}

	b := gateway.Binding{Tunnel: tunnel, Egress: egress}
	w.logger.Info("tunnel interface changed", "from", prev, "to", tunnel, "egress", egress)
	if err := w.rules.Apply(ctx, b); err != nil {
		// Keep the old binding so the next poll retries.
		w.logger.Error("rule apply failed", "binding", b.String(), "error", err)
		return
	}

	w.mu.Lock()
	w.last = b
	w.applied = time.Now()
	w.applies++
	w.mu.Unlock()
}

// miss records a poll that found no usable interface pair.
func (w *Watchdog) miss() {
	w.mu.Lock()
	w.misses++
	shouldWarn := w.warnAfter > 0 && w.misses >= w.warnAfter && !w.warned
	if shouldWarn {
		w.warned = true
	}
	misses := w.misses
	w.mu.Unlock()

	if shouldWarn {
		w.logger.Warn("no usable tunnel/egress pair", "consecutive_polls", misses)
	}
}

// Snapshot returns the current watchdog state.
func (w *Watchdog) Snapshot() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Tunnel:            w.last.Tunnel,
		Egress:            w.last.Egress,
		LastApplied:       w.applied,
		Polls:             w.polls,
		Applies:           w.applies,
		ConsecutiveMisses: w.misses,
	}
}
