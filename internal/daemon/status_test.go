package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akosykh/vpngw/internal/config"
	"github.com/akosykh/vpngw/internal/gateway"
	"github.com/akosykh/vpngw/internal/platform"
	"github.com/akosykh/vpngw/internal/watchdog"
)

type stubState struct{}

func (stubState) TunnelInterface(context.Context) (string, error) { return "", nil }
func (stubState) DefaultEgress(context.Context) (string, error)   { return "", nil }

type stubApplier struct{}

func (stubApplier) Apply(context.Context, gateway.Binding) error { return nil }

func testDaemon(t *testing.T) *Daemon {
	t.Helper()
	logger, logBuf := platform.NewLogger("error")
	cfg := config.Defaults()
	return &Daemon{
		cfg:      &cfg,
		watchdog: watchdog.New(stubState{}, stubApplier{}, time.Second, 0, logger),
		logger:   logger,
		logBuf:   logBuf,
		version:  "test",
		started:  time.Now(),
	}
}

func TestStatusEndpoint(t *testing.T) {
	d := testDaemon(t)
	srv := httptest.NewServer(d.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Version != "test" {
		t.Errorf("version = %q", payload.Version)
	}
	if payload.Watchdog.Polls != 0 {
		t.Errorf("polls = %d, want 0", payload.Watchdog.Polls)
	}
}

func TestLogsEndpointReturnsBufferedEntries(t *testing.T) {
	d := testDaemon(t)
	d.logger.Error("rule apply failed", "binding", "eth0->tun0")

	srv := httptest.NewServer(d.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/logs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var entries []platform.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Msg != "rule apply failed" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestStatusRejectsOtherMethods(t *testing.T) {
	d := testDaemon(t)
	srv := httptest.NewServer(d.routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/status", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
