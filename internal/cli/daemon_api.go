package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/watchdog"
)

// daemonStatus mirrors the daemon's /api/status payload.
type daemonStatus struct {
	Version    string          `json:"version"`
	Uptime     string          `json:"uptime"`
	Watchdog   watchdog.Status `json:"watchdog"`
	Interfaces []struct {
		Name      string `json:"name"`
		BytesSent uint64 `json:"bytes_sent"`
		BytesRecv uint64 `json:"bytes_recv"`
	} `json:"interfaces"`
}

// fetchDaemonStatus queries the running watch daemon's status API.
func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*daemonStatus, error) {
	listen := cfg.Daemon.StatusListen
	if listen == "" {
		return nil, fmt.Errorf("status API disabled")
	}
	if strings.HasPrefix(listen, ":") {
		listen = "127.0.0.1" + listen
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+listen+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not running")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}
