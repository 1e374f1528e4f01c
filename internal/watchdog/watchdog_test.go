package watchdog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/akosykh/vpngw/internal/gateway"
)

// scriptedState replays a fixed sequence of (tunnel, egress) observations.
type scriptedState struct {
	seq []observation
	idx int
}

type observation struct {
	tunnel, egress string
	err            error
}

func (s *scriptedState) next() observation {
	if s.idx >= len(s.seq) {
		return s.seq[len(s.seq)-1]
	}
	o := s.seq[s.idx]
	s.idx++
	return o
}

// The watchdog reads both names within one poll; replay per poll, not per call.
type pollState struct {
	inner *scriptedState
	cur   observation
	calls int
}

func (p *pollState) TunnelInterface(context.Context) (string, error) {
	p.cur = p.inner.next()
	p.calls++
	return p.cur.tunnel, p.cur.err
}

func (p *pollState) DefaultEgress(context.Context) (string, error) {
	return p.cur.egress, nil
}

type recordingApplier struct {
	applied []gateway.Binding
	fail    bool
}

func (r *recordingApplier) Apply(_ context.Context, b gateway.Binding) error {
	if r.fail {
		return errors.New("apply failed")
	}
	r.applied = append(r.applied, b)
	return nil
}

func newTestWatchdog(state NetState, rules gateway.Applier, warnAfter int) *Watchdog {
	return New(state, rules, time.Second, warnAfter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUnchangedTunnelDoesNotMutate(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "tun0", egress: "eth0"},
	}}}
	rules := &recordingApplier{}
	w := newTestWatchdog(state, rules, 0)

	for i := 0; i < 5; i++ {
		w.poll(context.Background())
	}

	if len(rules.applied) != 1 {
		t.Fatalf("applies = %d, want exactly 1", len(rules.applied))
	}
}

func TestTunnelChangeTriggersOneReapply(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "tun0", egress: "eth0"},
		{tunnel: "tun1", egress: "eth0"},
		{tunnel: "tun1", egress: "eth0"},
	}}}
	rules := &recordingApplier{}
	w := newTestWatchdog(state, rules, 0)

	for i := 0; i < 3; i++ {
		w.poll(context.Background())
	}

	if len(rules.applied) != 2 {
		t.Fatalf("applies = %d, want 2: %v", len(rules.applied), rules.applied)
	}
	if rules.applied[1] != (gateway.Binding{Tunnel: "tun1", Egress: "eth0"}) {
		t.Errorf("second apply = %+v", rules.applied[1])
	}
	if got := w.Snapshot().Tunnel; got != "tun1" {
		t.Errorf("last applied = %q, want tun1", got)
	}
}

func TestEmptyInterfacesNeverMutate(t *testing.T) {
	tests := []observation{
		{tunnel: "", egress: "eth0"},
		{tunnel: "tun0", egress: ""},
		{tunnel: "", egress: ""},
	}
	for _, obs := range tests {
		state := &pollState{inner: &scriptedState{seq: []observation{obs}}}
		rules := &recordingApplier{}
		w := newTestWatchdog(state, rules, 0)

		for i := 0; i < 3; i++ {
			w.poll(context.Background())
		}

		if len(rules.applied) != 0 {
			t.Errorf("obs %+v: applies = %d, want 0", obs, len(rules.applied))
		}
	}
}

// Scenario from the reconnect lifecycle: tunnel absent, appears as tun0,
// then the client renegotiates and presents tun1.
func TestReconnectScenario(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "", egress: "eth0"},
		{tunnel: "tun0", egress: "eth0"},
		{tunnel: "tun1", egress: "eth0"},
	}}}
	rules := &recordingApplier{}
	w := newTestWatchdog(state, rules, 0)

	w.poll(context.Background())
	if len(rules.applied) != 0 {
		t.Fatal("rules touched while tunnel absent")
	}

	w.poll(context.Background())
	if len(rules.applied) != 1 || rules.applied[0].Tunnel != "tun0" {
		t.Fatalf("after poll 2: %v", rules.applied)
	}

	w.poll(context.Background())
	if len(rules.applied) != 2 || rules.applied[1].Tunnel != "tun1" {
		t.Fatalf("after poll 3: %v", rules.applied)
	}
	if rules.applied[1].Egress != "eth0" {
		t.Errorf("egress = %q, want eth0", rules.applied[1].Egress)
	}
}

func TestFailedApplyRetriesNextPoll(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "tun0", egress: "eth0"},
	}}}
	rules := &recordingApplier{fail: true}
	w := newTestWatchdog(state, rules, 0)

	w.poll(context.Background())
	if got := w.Snapshot().Tunnel; got != "" {
		t.Fatalf("last applied = %q after failed apply, want empty", got)
	}

	// Next poll retries the same binding once applying works again.
	rules.fail = false
	w.poll(context.Background())
	if len(rules.applied) != 1 || rules.applied[0].Tunnel != "tun0" {
		t.Fatalf("retry did not happen: %v", rules.applied)
	}
}

func TestDetectionErrorCountsAsMiss(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{err: errors.New("netlink down")},
	}}}
	rules := &recordingApplier{}
	w := newTestWatchdog(state, rules, 2)

	for i := 0; i < 3; i++ {
		w.poll(context.Background())
	}

	if len(rules.applied) != 0 {
		t.Fatal("rules touched on detection error")
	}
	if got := w.Snapshot().ConsecutiveMisses; got != 3 {
		t.Errorf("consecutive misses = %d, want 3", got)
	}
}

func TestMissCounterResetsOnSuccess(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "", egress: "eth0"},
		{tunnel: "", egress: "eth0"},
		{tunnel: "tun0", egress: "eth0"},
	}}}
	rules := &recordingApplier{}
	w := newTestWatchdog(state, rules, 2)

	for i := 0; i < 3; i++ {
		w.poll(context.Background())
	}

	if got := w.Snapshot().ConsecutiveMisses; got != 0 {
		t.Errorf("consecutive misses = %d, want 0 after success", got)
	}
	if got := w.Snapshot().Applies; got != 1 {
		t.Errorf("applies = %d, want 1", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	state := &pollState{inner: &scriptedState{seq: []observation{
		{tunnel: "tun0", egress: "eth0"},
	}}}
	w := New(state, &recordingApplier{}, time.Millisecond, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
