package panel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rackfront/celestix/pkg/hid"
)

type tone struct {
	freq int
	dur  time.Duration
}

// newTestPanel wires a panel to a mock device and a beeper that reports
// every tone on the returned channel.
func newTestPanel(t *testing.T) (*Panel, *hid.Mock, chan tone) {
	t.Helper()
	dev := hid.NewMock()
	beeps := make(chan tone, 4)
	p := New(dev, BeepFunc(func(freq int, d time.Duration) error {
		beeps <- tone{freq, d}
		return nil
	}))
	t.Cleanup(func() { p.Close() })
	return p, dev, beeps
}

func TestPanelWrites(t *testing.T) {
	tests := []struct {
		name string
		op   func(p *Panel) error
		want []byte
	}{
		{
			name: "clear",
			op:   func(p *Panel) error { return p.Clear() },
			want: []byte{0x02, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "write string",
			op:   func(p *Panel) error { return p.WriteString("Hi", 1, 5) },
			want: []byte{0x02, 0x00, 0x05, 0x01, 0x02, 0x00, 0x00, 0x00, 'H', 'i'},
		},
		{
			name: "write line",
			op:   func(p *Panel) error { return p.WriteLine("Hi", 1) },
			want: append([]byte{0x02, 0x00, 0x00, 0x01, 0x28, 0x00, 0x00, 0x00},
				append([]byte("Hi"), bytes.Repeat([]byte{' '}, 38)...)...),
		},
		{
			name: "create char",
			op:   func(p *Panel) error { return p.CreateChar(2, []byte{0x01, 0x02, 0x03}) },
			want: []byte{0x02, 0x03, 0x10, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03},
		},
		{
			name: "write raw passthrough",
			op:   func(p *Panel) error { return p.WriteRaw([]byte{0xAA, 0xBB}) },
			want: []byte{0xAA, 0xBB},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev, _ := newTestPanel(t)
			if err := tt.op(p); err != nil {
				t.Fatalf("operation error = %v", err)
			}
			writes := dev.Writes()
			if len(writes) != 1 {
				t.Fatalf("device saw %d writes, want 1", len(writes))
			}
			if !bytes.Equal(writes[0], tt.want) {
				t.Errorf("device saw %v, want %v", writes[0], tt.want)
			}
		})
	}
}

func TestPanelWriteArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		op   func(p *Panel) error
	}{
		{name: "line out of range", op: func(p *Panel) error { return p.WriteLine("x", 2) }},
		{name: "cursor out of range", op: func(p *Panel) error { return p.WriteString("x", 0, 40) }},
		{name: "slot out of range", op: func(p *Panel) error { return p.CreateChar(8, []byte{0x01}) }},
		{name: "empty bitmap", op: func(p *Panel) error { return p.CreateChar(0, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev, _ := newTestPanel(t)
			if err := tt.op(p); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("operation error = %v, want ErrInvalidArgument", err)
			}
			if n := len(dev.Writes()); n != 0 {
				t.Errorf("device saw %d writes, want none on argument error", n)
			}
		})
	}
}

func TestPanelWriteErrorWrapped(t *testing.T) {
	p, dev, _ := newTestPanel(t)
	busErr := errors.New("bus fault")
	dev.FailWrites(busErr)

	err := p.Clear()
	if !errors.Is(err, busErr) {
		t.Fatalf("Clear() error = %v, want wrapped %v", err, busErr)
	}
	if !strings.Contains(err.Error(), "write report") {
		t.Errorf("Clear() error = %q, want write context in message", err)
	}
}

func TestPanelReadKey(t *testing.T) {
	p, dev, beeps := newTestPanel(t)
	dev.Enqueue([]byte{0x01, 0x02, 0x3A})

	ev, err := p.ReadKey(time.Second)
	if err != nil {
		t.Fatalf("ReadKey() error = %v", err)
	}
	if ev.Key != KeySelect {
		t.Errorf("ReadKey().Key = %v, want KeySelect", ev.Key)
	}

	select {
	case got := <-beeps:
		if got.freq != 1000 || got.dur != 20*time.Millisecond {
			t.Errorf("beep = %+v, want 1000 Hz for 20ms", got)
		}
	case <-time.After(time.Second):
		t.Fatal("beeper was not called for a recognized key")
	}
}

func TestPanelReadKeyTimeout(t *testing.T) {
	p, _, beeps := newTestPanel(t)

	ev, err := p.ReadKey(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("ReadKey() error = %v, want nil on timeout", err)
	}
	if ev.Key != KeyNone {
		t.Errorf("ReadKey().Key = %v, want KeyNone on timeout", ev.Key)
	}

	select {
	case got := <-beeps:
		t.Errorf("beeper called on timeout: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPanelReadKeyUnrecognized(t *testing.T) {
	p, dev, beeps := newTestPanel(t)
	raw := []byte{0x01, 0x02, 0x99, 0x00, 0x00, 0x00}
	dev.Enqueue(raw)

	ev, err := p.ReadKey(time.Second)
	if err != nil {
		t.Fatalf("ReadKey() error = %v", err)
	}
	if ev.Key != KeyUnknown {
		t.Errorf("ReadKey().Key = %v, want KeyUnknown", ev.Key)
	}
	if !bytes.Equal(ev.Raw, raw) {
		t.Errorf("ReadKey().Raw = %v, want %v", ev.Raw, raw)
	}

	select {
	case got := <-beeps:
		t.Errorf("beeper called for unrecognized report: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPanelBeeperFailureIgnored(t *testing.T) {
	dev := hid.NewMock()
	called := make(chan struct{}, 1)
	p := New(dev, BeepFunc(func(int, time.Duration) error {
		called <- struct{}{}
		return errors.New("speaker unplugged")
	}))
	defer p.Close()

	dev.Enqueue([]byte{0x01, 0x02, 0x3B})
	ev, err := p.ReadKey(time.Second)
	if err != nil {
		t.Fatalf("ReadKey() error = %v, want beeper failure ignored", err)
	}
	if ev.Key != KeyRight {
		t.Errorf("ReadKey().Key = %v, want KeyRight", ev.Key)
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("beeper was not called")
	}
}

func TestPanelNilBeeper(t *testing.T) {
	dev := hid.NewMock()
	p := New(dev, nil)
	defer p.Close()

	dev.Enqueue([]byte{0x01, 0x02, 0x3C})
	ev, err := p.ReadKey(time.Second)
	if err != nil {
		t.Fatalf("ReadKey() error = %v", err)
	}
	if ev.Key != KeyLeft {
		t.Errorf("ReadKey().Key = %v, want KeyLeft", ev.Key)
	}
}

func TestPanelReadRaw(t *testing.T) {
	p, dev, _ := newTestPanel(t)
	dev.Enqueue([]byte{0xDE, 0xAD, 0xBE, 0xEF})

	got, err := p.ReadRaw(time.Second)
	if err != nil {
		t.Fatalf("ReadRaw() error = %v", err)
	}
	if got != "deadbeef" {
		t.Errorf("ReadRaw() = %q, want %q", got, "deadbeef")
	}

	got, err = p.ReadRaw(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("ReadRaw() timeout error = %v", err)
	}
	if got != "" {
		t.Errorf("ReadRaw() on timeout = %q, want empty", got)
	}
}

func TestPanelClose(t *testing.T) {
	p, _, _ := newTestPanel(t)

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := p.Clear(); !errors.Is(err, ErrClosed) {
		t.Errorf("Clear() after close error = %v, want ErrClosed", err)
	}
	if err := p.WriteLine("x", 0); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteLine() after close error = %v, want ErrClosed", err)
	}
	if _, err := p.ReadKey(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadKey() after close error = %v, want ErrClosed", err)
	}
	if _, err := p.ReadRaw(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadRaw() after close error = %v, want ErrClosed", err)
	}
}

func TestOpenManager(t *testing.T) {
	dev := hid.NewMock()
	mgr := &hid.MockManager{
		Infos:  []hid.Info{{Path: "mock-0", VendorID: VendorID, ProductID: ProductID}},
		Device: dev,
	}

	p, err := OpenManager(mgr, nil)
	if err != nil {
		t.Fatalf("OpenManager() error = %v", err)
	}
	defer p.Close()

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n := len(dev.Writes()); n != 1 {
		t.Errorf("device saw %d writes, want 1", n)
	}
}

func TestOpenManagerNotFound(t *testing.T) {
	mgr := &hid.MockManager{}
	if _, err := OpenManager(mgr, nil); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("OpenManager() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestPanelWatch(t *testing.T) {
	p, dev, _ := newTestPanel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := p.Watch(ctx)
	dev.Enqueue([]byte{0x01, 0x02, 0x3B})
	dev.Enqueue([]byte{0x01, 0x02, 0x3A})

	want := []Key{KeyRight, KeySelect}
	for _, k := range want {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("events channel closed early")
			}
			if ev.Key != k {
				t.Errorf("event = %v, want %v", ev.Key, k)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v", k)
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Error("received event after cancel, want channel close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after cancel")
	}
}

func TestPanelWatchStopsOnClose(t *testing.T) {
	p, _, _ := newTestPanel(t)
	events := p.Watch(context.Background())

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Error("received event after close, want channel close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close after panel close")
	}
}
