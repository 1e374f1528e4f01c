package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gopsnet "github.com/shirou/gopsutil/v4/net"

	"github.com/akosykh/vpngw/internal/watchdog"
)

// statusPayload is the /api/status response body.
type statusPayload struct {
	Version    string           `json:"version"`
	Uptime     string           `json:"uptime"`
	Watchdog   watchdog.Status  `json:"watchdog"`
	Interfaces []interfaceStats `json:"interfaces,omitempty"`
}

// interfaceStats carries kernel traffic counters for a bound interface.
type interfaceStats struct {
	Name        string `json:"name"`
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

func (d *Daemon) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", getOnly(d.handleStatus))
	mux.HandleFunc("/api/logs", getOnly(d.handleLogs))
	return mux
}

// getOnly emulates the "GET /path" mux patterns that require go1.22: GET and
// HEAD are served, anything else gets 405 with an Allow header.
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := d.watchdog.Snapshot()
	payload := statusPayload{
		Version:    d.version,
		Uptime:     time.Since(d.started).Round(time.Second).String(),
		Watchdog:   snap,
		Interfaces: boundInterfaceStats(r.Context(), snap),
	}
	writeJSON(w, payload)
}

func (d *Daemon) handleLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, d.logBuf.Entries())
}

// boundInterfaceStats returns traffic counters for the interfaces the rules
// are currently bound to. Counter collection failing never fails the status
// endpoint.
func boundInterfaceStats(ctx context.Context, snap watchdog.Status) []interfaceStats {
	if snap.Tunnel == "" && snap.Egress == "" {
		return nil
	}
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil
	}

	var stats []interfaceStats
	for _, c := range counters {
		if c.Name != snap.Tunnel && c.Name != snap.Egress {
			continue
		}
		stats = append(stats, interfaceStats{
			Name:        c.Name,
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
		})
	}
	return stats
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
