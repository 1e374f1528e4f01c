// Package gateway owns the NAT/forwarding ruleset that turns this host into
// a LAN gateway routing through the VPN tunnel.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akosykh/vpngw/internal/dnsconf"
	"github.com/akosykh/vpngw/internal/netfilter"
)

// Binding is the interface tuple the firewall rules are written against.
// Rules referencing a stale binding after a VPN reconnect either break
// routing or leak LAN traffic outside the tunnel.
type Binding struct {
	Tunnel string // e.g. "tun0"
	Egress string // e.g. "eth0"
}

// Valid reports whether both interface names are known.
func (b Binding) Valid() bool {
	return b.Tunnel != "" && b.Egress != ""
}

func (b Binding) String() string {
	return b.Egress + "->" + b.Tunnel
}

// Applier replaces the active ruleset for a binding.
type Applier interface {
	Apply(ctx context.Context, b Binding) error
}

// Rules applies the gateway ruleset: masquerade LAN traffic out the tunnel
// and allow stateful forwarding between egress and tunnel.
type Rules struct {
	fw         netfilter.Firewall
	lanNetwork string // optional source CIDR restriction
	resolvConf string
	nameserver string
	logger     *slog.Logger
}

// NewRules creates a Rules applier.
func NewRules(fw netfilter.Firewall, lanNetwork, resolvConf, nameserver string, logger *slog.Logger) *Rules {
	return &Rules{
		fw:         fw,
		lanNetwork: lanNetwork,
		resolvConf: resolvConf,
		nameserver: nameserver,
		logger:     logger,
	}
}

// Apply atomically replaces the NAT and forwarding rules with ones
// referencing the given binding, resets the resolver to the fallback
// nameserver, and persists the ruleset.
func (r *Rules) Apply(ctx context.Context, b Binding) error {
	if !b.Valid() {
		return fmt.Errorf("incomplete binding %+v", b)
	}

	r.logger.Info("applying gateway rules", "tunnel", b.Tunnel, "egress", b.Egress)

	for _, table := range []string{"nat", "filter"} {
		if err := r.fw.FlushTable(ctx, table); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
	}

	for _, rs := range ruleSpecs(b, r.lanNetwork) {
		if err := r.fw.AppendUnique(ctx, rs.table, rs.chain, rs.spec...); err != nil {
			return err
		}
	}

	if r.nameserver != "" {
		if err := dnsconf.WriteResolvConf(r.resolvConf, r.nameserver); err != nil {
			r.logger.Warn("resolv.conf reset failed", "error", err)
		}
	}

	if err := r.fw.Save(ctx); err != nil {
		r.logger.Warn("ruleset not persisted", "error", err)
	}

	return nil
}

// Installed reports whether the masquerade rule for the binding is present.
func (r *Rules) Installed(ctx context.Context, b Binding) (bool, error) {
	specs := ruleSpecs(b, r.lanNetwork)
	masq := specs[0]
	return r.fw.Exists(ctx, masq.table, masq.chain, masq.spec...)
}

type ruleSpec struct {
	table string
	chain string
	spec  []string
}

// ruleSpecs returns the gateway ruleset for a binding: one masquerade rule
// on the tunnel and a stateful forwarding pair. LAN-originated connections
// may open new flows toward the tunnel; return traffic is restricted to
// established/related so nothing unsolicited reaches the LAN.
func ruleSpecs(b Binding, lanNetwork string) []ruleSpec {
	masq := []string{"-o", b.Tunnel}
	fwd := []string{"-i", b.Egress, "-o", b.Tunnel}
	if lanNetwork != "" {
		masq = append([]string{"-s", lanNetwork}, masq...)
		fwd = append([]string{"-s", lanNetwork}, fwd...)
	}
	masq = append(masq, "-j", "MASQUERADE")
	fwd = append(fwd, "-m", "conntrack", "--ctstate", "NEW,ESTABLISHED,RELATED", "-j", "ACCEPT")

	return []ruleSpec{
		{table: "nat", chain: "POSTROUTING", spec: masq},
		{table: "filter", chain: "FORWARD", spec: fwd},
		{table: "filter", chain: "FORWARD", spec: []string{
			"-i", b.Tunnel, "-o", b.Egress,
			"-m", "conntrack", "--ctstate", "ESTABLISHED,RELATED", "-j", "ACCEPT",
		}},
	}
}
