package dnsconf

import (
	"fmt"
	"net"
	"os"
)

const resolvHeader = "# Generated by vpngw. Rewritten whenever NAT rules are reapplied.\n"

// WriteResolvConf replaces the resolver configuration with a single
// nameserver line pointing at the fallback resolver. The VPN client tends to
// leave a dead in-tunnel resolver behind after reconnects; pinning a public
// resolver keeps the gateway itself resolving.
func WriteResolvConf(path, nameserver string) error {
	if net.ParseIP(nameserver) == nil {
		return fmt.Errorf("invalid nameserver %q", nameserver)
	}
	content := resolvHeader + "nameserver " + nameserver + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
