package netstatus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober checks raw reachability. Implementations must honour the context
// deadline; the monitor treats any error as "everything down".
type Prober interface {
	Probe(ctx context.Context) (internet bool, fiscal bool, err error)
}

type Monitor struct {
	prober  Prober
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	current Status
	subs    []chan Status

	pollMu   sync.Mutex
	stopPoll chan struct{}
}

func NewMonitor(prober Prober, timeout time.Duration, logger *zap.Logger) *Monitor {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Monitor{
		prober:  prober,
		logger:  logger,
		timeout: timeout,
		current: Derive(false, false, time.Time{}),
	}
}

// Current returns the last derived status without probing.
func (m *Monitor) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ProbeNow runs a probe synchronously. It never fails: a probe error or
// timeout degrades to DISCONNECTED with both capabilities off.
func (m *Monitor) ProbeNow(ctx context.Context) Status {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	internet, fiscal, err := m.prober.Probe(probeCtx)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("connectivity probe failed", zap.Error(err))
		}
		internet, fiscal = false, false
	}

	status := Derive(internet, fiscal, time.Now())
	m.publish(status)
	return status
}

// Subscribe returns a channel receiving a Status on every level transition.
// The send is non-blocking; a slow subscriber misses intermediate states but
// always sees the latest one via Current.
func (m *Monitor) Subscribe() <-chan Status {
	ch := make(chan Status, 4)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Monitor) publish(status Status) {
	m.mu.Lock()
	changed := m.current.Status != status.Status
	m.current = status
	subs := m.subs
	m.mu.Unlock()

	if !changed {
		return
	}
	if m.logger != nil {
		m.logger.Info("network status changed",
			zap.String("status", string(status.Status)),
			zap.Bool("canSubmitToFiscalBackend", status.CanSubmitToFiscalBackend))
	}
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// StartPolling probes on a coarse interval until StopPolling is called.
// Calling it twice restarts the schedule.
func (m *Monitor) StartPolling(interval time.Duration) {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()

	if m.stopPoll != nil {
		close(m.stopPoll)
	}
	stop := make(chan struct{})
	m.stopPoll = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.ProbeNow(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

func (m *Monitor) StopPolling() {
	m.pollMu.Lock()
	defer m.pollMu.Unlock()
	if m.stopPoll != nil {
		close(m.stopPoll)
		m.stopPoll = nil
	}
}
