// Package healthcheck runs end-to-end diagnostics over the gateway pipeline.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/dnsconf"
	"github.com/akosykh/vpngw/internal/gateway"
	"github.com/akosykh/vpngw/internal/netfilter"
	"github.com/akosykh/vpngw/internal/netstate"
	"github.com/akosykh/vpngw/internal/sysctl"
	"github.com/akosykh/vpngw/internal/vpn"
)

// connectivityURL answers 204 without redirects, which makes it a reliable
// reachability probe even behind captive portals.
const connectivityURL = "http://connectivitycheck.gstatic.com/generate_204"

// dnsProbeName is the record the DNS check resolves via the fallback resolver.
const dnsProbeName = "dns.google"

// Result represents a single health check outcome.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunChecks performs all health checks and returns the results.
func RunChecks(ctx context.Context, cfg *config.Config) []Result {
	var results []Result

	results = append(results, CheckConnectivity(ctx))

	client := vpn.NewClient(cfg.VPN.Binary)
	results = append(results, checkClient(client))
	results = append(results, checkConnectionState(ctx, client))

	tunnel, egress := "", ""
	state, err := netstate.New(cfg.Network.TunnelPattern, cfg.Network.EgressInterface)
	if err != nil {
		results = append(results, Result{Name: "interfaces", Detail: err.Error()})
	} else {
		tunnel, _ = state.TunnelInterface(ctx)
		egress, _ = state.DefaultEgress(ctx)
		results = append(results, checkInterface("tunnel interface", tunnel))
		results = append(results, checkInterface("egress interface", egress))
	}

	results = append(results, checkIPForward())
	results = append(results, checkRules(ctx, cfg, tunnel, egress))
	results = append(results, checkDNS(ctx, cfg.DNS.Fallback))

	return results
}

// CheckConnectivity verifies the host can reach the internet at all. Also
// used as the fatal precondition check at the top of the setup sequence.
func CheckConnectivity(ctx context.Context) Result {
	r := Result{Name: "connectivity"}
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, connectivityURL, nil)
	resp, err := client.Do(req)
	if err != nil {
		r.Detail = fmt.Sprintf("request failed: %v", err)
		return r
	}
	resp.Body.Close()
	r.Passed = true
	r.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return r
}

func checkClient(client *vpn.Client) Result {
	r := Result{Name: "vpn client"}
	if !client.Installed() {
		r.Detail = client.Bin + " not found in PATH"
		return r
	}
	r.Passed = true
	r.Detail = client.Bin + " installed"
	return r
}

func checkConnectionState(ctx context.Context, client *vpn.Client) Result {
	r := Result{Name: "vpn connection"}
	state, err := client.ConnectionState(ctx)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	r.Passed = state == vpn.StateConnected
	r.Detail = state
	return r
}

func checkInterface(name, iface string) Result {
	r := Result{Name: name}
	if iface == "" {
		r.Detail = "not detected"
		return r
	}
	r.Passed = true
	r.Detail = iface
	return r
}

func checkIPForward() Result {
	r := Result{Name: "ip_forward"}
	on, err := sysctl.IPForwardEnabled()
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	if !on {
		r.Detail = "disabled"
		return r
	}
	r.Passed = true
	r.Detail = "enabled"
	return r
}

func checkRules(ctx context.Context, cfg *config.Config, tunnel, egress string) Result {
	r := Result{Name: "nat rules"}
	b := gateway.Binding{Tunnel: tunnel, Egress: egress}
	if !b.Valid() {
		r.Detail = "skipped, interfaces not detected"
		return r
	}
	fw, err := netfilter.NewIPTables()
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	rules := gateway.NewRules(fw, cfg.Network.LANNetwork, "", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ok, err := rules.Installed(ctx, b)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	if !ok {
		r.Detail = fmt.Sprintf("masquerade rule for %s missing", b)
		return r
	}
	r.Passed = true
	r.Detail = fmt.Sprintf("masquerade via %s installed", tunnel)
	return r
}

func checkDNS(ctx context.Context, fallback string) Result {
	r := Result{Name: "fallback dns"}
	ips, err := dnsconf.Probe(ctx, fallback, dnsProbeName)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	if len(ips) == 0 {
		r.Detail = "no answers"
		return r
	}
	r.Passed = true
	r.Detail = fmt.Sprintf("%s answers (%d records)", fallback, len(ips))
	return r
}
