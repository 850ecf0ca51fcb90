package netstatus

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProber struct {
	internet bool
	fiscal   bool
	err      error
}

func (p *fakeProber) Probe(ctx context.Context) (bool, bool, error) {
	return p.internet, p.fiscal, p.err
}

func TestDerive(t *testing.T) {
	cases := []struct {
		name      string
		internet  bool
		fiscal    bool
		level     Level
		canSubmit bool
	}{
		{"both up", true, true, StatusFullyConnected, true},
		{"internet only", true, false, StatusInternetOnly, false},
		{"fiscal without internet", false, true, StatusDisconnected, false},
		{"both down", false, false, StatusDisconnected, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.internet, tc.fiscal, time.Now())
			if got.Status != tc.level {
				t.Fatalf("expected %s, got %s", tc.level, got.Status)
			}
			if got.CanSubmitToFiscalBackend != tc.canSubmit {
				t.Fatalf("expected canSubmit=%v", tc.canSubmit)
			}
			if got.CanProcessInvoices != tc.canSubmit {
				t.Fatalf("expected canProcessInvoices=%v", tc.canSubmit)
			}
		})
	}
}

func TestProbeFailureDegradesToDisconnected(t *testing.T) {
	m := NewMonitor(&fakeProber{internet: true, fiscal: true, err: errors.New("timeout")}, time.Second, nil)
	status := m.ProbeNow(context.Background())
	if status.Status != StatusDisconnected {
		t.Fatalf("expected DISCONNECTED on probe error, got %s", status.Status)
	}
	if status.CanSubmitToFiscalBackend {
		t.Fatalf("expected canSubmit=false on probe error")
	}
}

func TestSubscribeNotifiesOnTransition(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, time.Second, nil)
	ch := m.Subscribe()

	// DISCONNECTED -> DISCONNECTED is not a transition.
	m.ProbeNow(context.Background())
	select {
	case s := <-ch:
		t.Fatalf("unexpected notification %s", s.Status)
	default:
	}

	prober.internet, prober.fiscal = true, true
	m.ProbeNow(context.Background())
	select {
	case s := <-ch:
		if s.Status != StatusFullyConnected {
			t.Fatalf("expected FULLY_CONNECTED, got %s", s.Status)
		}
	default:
		t.Fatalf("expected a transition notification")
	}

	if m.Current().Status != StatusFullyConnected {
		t.Fatalf("Current should reflect latest probe")
	}
}
