package netfilter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreos/go-iptables/iptables"

	"github.com/akosykh/vpngw/internal/platform"
)

// Firewall is the rule surface the gateway needs. The concrete
// implementation drives iptables; tests substitute a recorder.
type Firewall interface {
	// FlushTable clears every chain in the given table.
	FlushTable(ctx context.Context, table string) error

	// AppendUnique appends a rule unless an identical one already exists.
	AppendUnique(ctx context.Context, table, chain string, rulespec ...string) error

	// Exists reports whether an identical rule is present.
	Exists(ctx context.Context, table, chain string, rulespec ...string) (bool, error)

	// Save persists the current ruleset so it survives a reboot.
	Save(ctx context.Context) error
}

// IPTables implements Firewall on top of the iptables binaries.
type IPTables struct {
	ipt       *iptables.IPTables
	rulesFile string
}

// NewIPTables creates an IPv4 iptables-backed Firewall persisting to the
// standard rules file.
func NewIPTables() (*IPTables, error) {
	ipt, err := iptables.New(iptables.IPFamily(iptables.ProtocolIPv4))
	if err != nil {
		return nil, fmt.Errorf("init iptables: %w", err)
	}
	return &IPTables{ipt: ipt, rulesFile: platform.RulesFile}, nil
}

// FlushTable clears all chains in the table, built-in and user-defined.
func (t *IPTables) FlushTable(_ context.Context, table string) error {
	chains, err := t.ipt.ListChains(table)
	if err != nil {
		return fmt.Errorf("list %s chains: %w", table, err)
	}
	for _, chain := range chains {
		if err := t.ipt.ClearChain(table, chain); err != nil {
			return fmt.Errorf("flush %s/%s: %w", table, chain, err)
		}
	}
	return nil
}

func (t *IPTables) AppendUnique(_ context.Context, table, chain string, rulespec ...string) error {
	if err := t.ipt.AppendUnique(table, chain, rulespec...); err != nil {
		return fmt.Errorf("append %s/%s: %w", table, chain, err)
	}
	return nil
}

func (t *IPTables) Exists(_ context.Context, table, chain string, rulespec ...string) (bool, error) {
	return t.ipt.Exists(table, chain, rulespec...)
}

// Save writes iptables-save output to the rules file. Distributions restore
// it at boot via netfilter-persistent or an iptables-restore unit; the
// oneshot setup unit reapplies rules regardless, so this is belt and braces
// for hosts that already ship rule restoration.
func (t *IPTables) Save(ctx context.Context) error {
	out, err := platform.Run(ctx, "iptables-save")
	if err != nil {
		return fmt.Errorf("iptables-save: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.rulesFile), 0o755); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}
	if err := os.WriteFile(t.rulesFile, []byte(out+"\n"), 0o600); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	return nil
}
