// Package vpn wraps the VPN provider's command-line client.
//
// The gateway never talks to the VPN protocol itself: login, tunnel
// negotiation and reconnects are the client's job. This package only issues
// its subcommands and inspects the reported connection state.
package vpn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akosykh/vpngw/internal/platform"
)

// StateConnected is the connection state reported by the client once the
// tunnel is up (piactl: "Connected").
const StateConnected = "Connected"

// ErrNotConnected is returned by WaitConnected when the timeout elapses.
var ErrNotConnected = errors.New("vpn: client did not reach Connected state")

// runFunc matches platform.Run; swapped out in tests.
type runFunc func(ctx context.Context, name string, args ...string) (string, error)

// Client drives the VPN provider CLI (piactl-compatible subcommand set).
type Client struct {
	Bin string

	run runFunc
}

// NewClient creates a Client for the given CLI binary.
func NewClient(bin string) *Client {
	return &Client{Bin: bin, run: platform.Run}
}

// Installed reports whether the client binary is available in PATH.
func (c *Client) Installed() bool {
	return platform.BinaryExists(c.Bin)
}

// ConnectionState returns the client's reported state, e.g. "Connected",
// "Disconnected", "Connecting".
func (c *Client) ConnectionState(ctx context.Context) (string, error) {
	out, err := c.run(ctx, c.Bin, "get", "connectionstate")
	if err != nil {
		return "", fmt.Errorf("query connection state: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Login authenticates the client using a credentials file.
func (c *Client) Login(ctx context.Context, credentialsFile string) error {
	if _, err := c.run(ctx, c.Bin, "login", credentialsFile); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Connect asks the client to establish the tunnel. The call returns before
// the tunnel is up; use WaitConnected to block until it is.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.run(ctx, c.Bin, "connect"); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// WaitConnected polls the connection state until the client reports
// Connected, the timeout elapses, or ctx is cancelled. State query errors
// are treated as "not connected yet"; the client may briefly refuse
// commands while its daemon restarts.
func (c *Client) WaitConnected(ctx context.Context, interval, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := c.ConnectionState(ctx)
		if err == nil && state == StateConnected {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrNotConnected
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
