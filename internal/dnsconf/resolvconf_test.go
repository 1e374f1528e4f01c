package dnsconf_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akosykh/vpngw/internal/dnsconf"
)

func TestWriteResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")

	if err := dnsconf.WriteResolvConf(path, "1.1.1.1"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "nameserver 1.1.1.1\n") {
		t.Errorf("unexpected resolv.conf contents:\n%s", data)
	}
}

func TestWriteResolvConfReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	if err := os.WriteFile(path, []byte("nameserver 10.0.0.241\nsearch lan\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := dnsconf.WriteResolvConf(path, "9.9.9.9"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "10.0.0.241") {
		t.Errorf("stale nameserver survived:\n%s", data)
	}
	if !strings.Contains(string(data), "nameserver 9.9.9.9\n") {
		t.Errorf("fallback nameserver missing:\n%s", data)
	}
}

func TestWriteResolvConfRejectsBadIP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	if err := dnsconf.WriteResolvConf(path, "not-an-ip"); err == nil {
		t.Fatal("expected error for invalid nameserver")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not be written for invalid nameserver")
	}
}
