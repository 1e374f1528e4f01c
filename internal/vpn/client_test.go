package vpn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fakeRunner(responses map[string][]string, calls *[]string) runFunc {
	return func(_ context.Context, name string, args ...string) (string, error) {
		key := name
		for _, a := range args {
			key += " " + a
		}
		if calls != nil {
			*calls = append(*calls, key)
		}
		queue, ok := responses[key]
		if !ok || len(queue) == 0 {
			return "", errors.New("unexpected command: " + key)
		}
		out := queue[0]
		responses[key] = queue[1:]
		if out == "ERR" {
			return "", errors.New("command failed")
		}
		return out, nil
	}
}

func TestConnectionState(t *testing.T) {
	c := NewClient("piactl")
	c.run = fakeRunner(map[string][]string{
		"piactl get connectionstate": {"Connected\n"},
	}, nil)

	state, err := c.ConnectionState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state != StateConnected {
		t.Errorf("state = %q, want Connected", state)
	}
}

func TestWaitConnectedEventuallySucceeds(t *testing.T) {
	c := NewClient("piactl")
	c.run = fakeRunner(map[string][]string{
		"piactl get connectionstate": {"Disconnected", "Connecting", "ERR", "Connected"},
	}, nil)

	err := c.WaitConnected(context.Background(), time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("WaitConnected: %v", err)
	}
}

func TestWaitConnectedTimesOut(t *testing.T) {
	c := NewClient("piactl")
	c.run = func(context.Context, string, ...string) (string, error) {
		return "Disconnected", nil
	}

	err := c.WaitConnected(context.Background(), time.Millisecond, 20*time.Millisecond)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestWaitConnectedHonorsCancel(t *testing.T) {
	c := NewClient("piactl")
	c.run = func(context.Context, string, ...string) (string, error) {
		return "Connecting", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.WaitConnected(ctx, time.Millisecond, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoginAndConnectInvokeCLI(t *testing.T) {
	var calls []string
	c := NewClient("piactl")
	c.run = fakeRunner(map[string][]string{
		"piactl login /etc/vpngw/credentials": {""},
		"piactl connect":                      {""},
	}, &calls)

	if err := c.Login(context.Background(), "/etc/vpngw/credentials"); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %v", calls)
	}
}
