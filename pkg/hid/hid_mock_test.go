package hid

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestMockReadQueued(t *testing.T) {
	m := NewMock()
	defer m.Close()

	want := []byte{0x01, 0x02, 0x3A, 0x00, 0x00, 0x00}
	m.Enqueue(want)

	p := make([]byte, 6)
	n, err := m.Read(p, time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(want) || !bytes.Equal(p[:n], want) {
		t.Errorf("Read() = %v (n=%d), want %v", p[:n], n, want)
	}
}

func TestMockReadTimeout(t *testing.T) {
	m := NewMock()
	defer m.Close()

	p := make([]byte, 6)
	n, err := m.Read(p, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil on timeout", err)
	}
	if n != 0 {
		t.Errorf("Read() n = %d, want 0 on timeout", n)
	}
}

func TestMockClosed(t *testing.T) {
	m := NewMock()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := m.Write([]byte{0x02}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Write() after close error = %v, want ErrDeviceClosed", err)
	}
	p := make([]byte, 6)
	if _, err := m.Read(p, 0); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Read() after close error = %v, want ErrDeviceClosed", err)
	}
}

func TestMockWrites(t *testing.T) {
	m := NewMock()
	defer m.Close()

	first := []byte{0x02, 0x01}
	if _, err := m.Write(first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	// mutating the caller's slice must not change the capture
	first[0] = 0xFF

	got := m.Writes()
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x02, 0x01}) {
		t.Errorf("Writes() = %v, want [[0x02 0x01]]", got)
	}

	wantErr := errors.New("bus fault")
	m.FailWrites(wantErr)
	if _, err := m.Write([]byte{0x02}); !errors.Is(err, wantErr) {
		t.Errorf("Write() after FailWrites error = %v, want %v", err, wantErr)
	}
}

func TestMockManagerOpenVIDPID(t *testing.T) {
	dev := NewMock()
	defer dev.Close()

	mgr := &MockManager{
		Infos: []Info{
			{Path: "mock-0", VendorID: 0x0CB6, ProductID: 0x0002},
			{Path: "mock-1", VendorID: 0x1234, ProductID: 0x5678},
		},
		Device: dev,
	}

	got, err := mgr.OpenVIDPID(0x0CB6, 0x0002)
	if err != nil {
		t.Fatalf("OpenVIDPID() error = %v", err)
	}
	if got != Device(dev) {
		t.Errorf("OpenVIDPID() returned unexpected device")
	}

	if _, err := mgr.OpenVIDPID(0xDEAD, 0xBEEF); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("OpenVIDPID() error = %v, want ErrDeviceNotFound", err)
	}

	infos, err := mgr.List(0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("List(0, 0) returned %d devices, want 2", len(infos))
	}
}
