package dnsconf

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Probe sends an A query for name to the given resolver and returns the
// answered addresses. Used by the healthchecks to verify the fallback
// resolver actually answers after a resolv.conf reset.
func Probe(ctx context.Context, server, name string) ([]net.IP, error) {
	if !strings.Contains(server, ":") {
		server = net.JoinHostPort(server, "53")
	}
	if !strings.HasSuffix(name, ".") {
		name += "."
	}

	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)

	client := &dns.Client{Timeout: 5 * time.Second}
	resp, _, err := client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("dns query %s via %s: %w", name, server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query %s via %s: rcode %s", name, server, dns.RcodeToString[resp.Rcode])
	}

	var ips []net.IP
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	return ips, nil
}
