// Package netstate answers two questions about the host's live network
// state: which tunnel interface the VPN client currently presents, and which
// interface carries the default route out of the host. It queries the kernel
// over rtnetlink rather than parsing tool output, so a renamed tunnel or a
// reshuffled route table can't break the watchdog on formatting.
package netstate

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/vishvananda/netlink"
)

// State performs interface and route lookups against the kernel.
type State struct {
	pattern *regexp.Regexp
	egress  string // pinned egress interface; empty = auto-detect
}

// New compiles the tunnel-naming pattern and returns a State.
// egressOverride, when non-empty, pins the egress interface instead of
// deriving it from the default route.
func New(tunnelPattern, egressOverride string) (*State, error) {
	re, err := regexp.Compile(tunnelPattern)
	if err != nil {
		return nil, fmt.Errorf("tunnel pattern %q: %w", tunnelPattern, err)
	}
	return &State{pattern: re, egress: egressOverride}, nil
}

// TunnelInterface returns the name of the first operational interface whose
// name matches the tunnel pattern, or "" when the tunnel is down. Transient
// absence is expected between VPN reconnects and is not an error.
func (s *State) TunnelInterface(_ context.Context) (string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return "", fmt.Errorf("list links: %w", err)
	}

	var candidates []linkInfo
	for _, l := range links {
		attrs := l.Attrs()
		candidates = append(candidates, linkInfo{
			name: attrs.Name,
			// TUN devices commonly report "unknown" rather than "up".
			up: attrs.OperState == netlink.OperUp || attrs.OperState == netlink.OperUnknown,
		})
	}
	return chooseTunnel(candidates, s.pattern), nil
}

// DefaultEgress returns the name of the interface carrying the host's
// default route, skipping tunnel interfaces so the pre-VPN egress is found
// even while the tunnel holds the default route. Returns "" when no default
// route exists.
func (s *State) DefaultEgress(_ context.Context) (string, error) {
	if s.egress != "" {
		if _, err := netlink.LinkByName(s.egress); err != nil {
			return "", nil
		}
		return s.egress, nil
	}

	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("list routes: %w", err)
	}

	var defaults []routeInfo
	for _, r := range routes {
		if r.Dst != nil && !isZeroDst(r) {
			continue
		}
		link, err := netlink.LinkByIndex(r.LinkIndex)
		if err != nil {
			continue
		}
		defaults = append(defaults, routeInfo{
			iface:    link.Attrs().Name,
			priority: r.Priority,
		})
	}
	return chooseEgress(defaults, s.pattern), nil
}

func isZeroDst(r netlink.Route) bool {
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

type linkInfo struct {
	name string
	up   bool
}

type routeInfo struct {
	iface    string
	priority int
}

// chooseTunnel picks the first operational link matching the tunnel pattern.
func chooseTunnel(links []linkInfo, pattern *regexp.Regexp) string {
	for _, l := range links {
		if l.up && pattern.MatchString(l.name) {
			return l.name
		}
	}
	return ""
}

// chooseEgress picks the lowest-metric default route whose interface is not
// itself a tunnel.
func chooseEgress(defaults []routeInfo, tunnelPattern *regexp.Regexp) string {
	sort.SliceStable(defaults, func(i, j int) bool {
		return defaults[i].priority < defaults[j].priority
	})
	for _, r := range defaults {
		if !tunnelPattern.MatchString(r.iface) {
			return r.iface
		}
	}
	return ""
}
