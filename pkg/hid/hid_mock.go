package hid

import (
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Device for tests. Input reports are scripted with
// Enqueue and written reports are captured for inspection.
type Mock struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
	closed   bool

	reports chan []byte
	done    chan struct{}
}

func NewMock() *Mock {
	return &Mock{
		reports: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

// Enqueue schedules an input report for a later Read.
func (m *Mock) Enqueue(p []byte) {
	buf := make([]byte, len(p))
	copy(buf, p)
	m.reports <- buf
}

// FailWrites makes every subsequent Write return err.
func (m *Mock) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns a copy of the reports written so far.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrDeviceClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	return len(p), nil
}

func (m *Mock) Read(p []byte, timeout time.Duration) (int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case buf := <-m.reports:
		return copy(p, buf), nil
	case <-m.done:
		return 0, ErrDeviceClosed
	case <-expired:
		return 0, nil
	}
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// MockManager serves a fixed device list, handing out Device on Open. It
// lets session-level tests drive enumeration without hardware.
type MockManager struct {
	Infos  []Info
	Device Device
}

func (m *MockManager) List(vendorID, productID uint16) ([]Info, error) {
	var out []Info
	for _, info := range m.Infos {
		if vendorID != 0 && info.VendorID != vendorID {
			continue
		}
		if productID != 0 && info.ProductID != productID {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (m *MockManager) Open(info Info) (Device, error) {
	if m.Device == nil {
		return nil, fmt.Errorf("%w (%s)", ErrDeviceNotFound, info.Path)
	}
	return m.Device, nil
}

func (m *MockManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	devs, err := m.List(vendorID, productID)
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
	}
	return m.Open(devs[0])
}
