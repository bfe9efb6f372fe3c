// Package panel drives the front panel of Celestix appliances, a composite
// USB HID device pairing a 2x40 character LCD with a rotary encoder knob.
//
// A Panel session owns one open HID handle. Output operations encode a
// fixed-layout report and write it through the transport; ReadKey reads
// keypad reports and interprets them as knob gestures, optionally sounding
// a feedback tone. Close releases the handle and is safe to call more than
// once, so a session can simply be deferred.
//
// Write methods serialize on an internal lock. Reads are not serialized
// against each other; keep at most one ReadKey, ReadRaw or Watch in flight
// per session.
package panel

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rackfront/celestix/internal/report"
	"github.com/rackfront/celestix/pkg/hid"
)

// USB identity of the front panel.
const (
	VendorID  uint16 = 0x0CB6 // Celestix Networks
	ProductID uint16 = 0x0002 // front panel LCD and knob
)

// watchReadTimeout paces the Watch polling loop so it can notice
// cancellation between reports.
const watchReadTimeout = 250 * time.Millisecond

// ErrClosed is returned for operations on a closed panel.
var ErrClosed = errors.New("panel: closed")

// ErrInvalidArgument mirrors the codec sentinel so callers can match
// argument errors without importing internal packages.
var ErrInvalidArgument = report.ErrInvalidArgument

// ErrDeviceNotFound mirrors the transport sentinel returned by Open when
// no panel hardware is attached.
var ErrDeviceNotFound = hid.ErrDeviceNotFound

// Beeper sounds a tone at freq hertz for the given duration. The panel
// fires it after each recognized key press; failures are logged, never
// surfaced to the reader.
type Beeper interface {
	Beep(freq int, duration time.Duration) error
}

// BeepFunc adapts a function to the Beeper interface.
type BeepFunc func(freq int, duration time.Duration) error

func (f BeepFunc) Beep(freq int, duration time.Duration) error {
	return f(freq, duration)
}

// Panel is an open front-panel session.
type Panel struct {
	mu     sync.Mutex
	dev    hid.Device
	beeper Beeper
	closed bool
}

// New wraps an already opened HID device in a session. A nil beeper
// disables key-press tones.
func New(dev hid.Device, beeper Beeper) *Panel {
	return &Panel{dev: dev, beeper: beeper}
}

// Open finds the first attached front panel through the default HID
// backend and opens a session. It fails with ErrDeviceNotFound when no
// panel is attached.
func Open(beeper Beeper) (*Panel, error) {
	mgr, err := hid.NewManager()
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	return OpenManager(mgr, beeper)
}

// OpenManager is Open against a caller-supplied HID manager.
func OpenManager(mgr hid.Manager, beeper Beeper) (*Panel, error) {
	dev, err := mgr.OpenVIDPID(VendorID, ProductID)
	if err != nil {
		return nil, fmt.Errorf("panel: open: %w", err)
	}
	return New(dev, beeper), nil
}

// WriteLine replaces one whole display line with text. Text longer than
// the 40-character line is truncated, shorter text is space padded so
// stale characters never show through.
func (p *Panel) WriteLine(text string, line int) error {
	rep, err := report.EncodeWriteLine(text, line)
	if err != nil {
		return err
	}
	return p.write(rep)
}

// WriteString writes text at a cursor position on one line, leaving the
// rest of the line as it was.
func (p *Panel) WriteString(text string, line, cursor int) error {
	rep, err := report.EncodeWriteString(text, line, cursor)
	if err != nil {
		return err
	}
	return p.write(rep)
}

// Clear blanks the whole display.
func (p *Panel) Clear() error {
	return p.write(report.EncodeClear())
}

// CreateChar stores a glyph bitmap in custom character slot location. The
// glyph then renders wherever byte value location appears in written text.
// Slots 6 and 7 hold the firmware's boot screen glyphs.
func (p *Panel) CreateChar(location int, bitmap []byte) error {
	rep, err := report.EncodeCustomChar(location, bitmap)
	if err != nil {
		return err
	}
	return p.write(rep)
}

// ReadKey waits up to timeout for a keypad report and interprets it. When
// nothing arrives in time it returns a KeyNone event and a nil error; a
// timeout of zero or below blocks until input. Recognized presses sound
// the configured beeper.
func (p *Panel) ReadKey(timeout time.Duration) (KeyEvent, error) {
	if p.isClosed() {
		return KeyEvent{}, ErrClosed
	}
	buf := make([]byte, report.KeyReportLength)
	n, err := p.dev.Read(buf, timeout)
	if err != nil {
		if errors.Is(err, hid.ErrDeviceClosed) {
			return KeyEvent{}, ErrClosed
		}
		return KeyEvent{}, fmt.Errorf("panel: read key: %w", err)
	}
	if n == 0 {
		return KeyEvent{Key: KeyNone}, nil
	}
	ev := DecodeKeyEvent(buf[:n])
	slog.Debug("panel key",
		slog.String("key", ev.Key.String()),
		slog.String("report", report.HexString(buf[:n])))
	p.ring(ev.Key)
	return ev, nil
}

// ReadRaw reads one input report without interpretation and returns it
// hex encoded. A timed-out read returns an empty string. It exists for
// protocol exploration alongside WriteRaw.
func (p *Panel) ReadRaw(timeout time.Duration) (string, error) {
	if p.isClosed() {
		return "", ErrClosed
	}
	buf := make([]byte, report.RawReportLength)
	n, err := p.dev.Read(buf, timeout)
	if err != nil {
		if errors.Is(err, hid.ErrDeviceClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("panel: read raw: %w", err)
	}
	return hex.EncodeToString(buf[:n]), nil
}

// WriteRaw sends a caller-built report verbatim, no validation.
func (p *Panel) WriteRaw(rep []byte) error {
	return p.write(rep)
}

// Watch polls for key events until ctx is done or the panel closes. Both
// recognized and unrecognized presses are delivered; poll timeouts are
// not. The channel closes when watching stops.
func (p *Panel) Watch(ctx context.Context) <-chan KeyEvent {
	events := make(chan KeyEvent)
	go func() {
		defer close(events)
		for {
			if ctx.Err() != nil {
				return
			}
			ev, err := p.ReadKey(watchReadTimeout)
			if err != nil {
				if !errors.Is(err, ErrClosed) {
					slog.Warn("panel watch stopped", slog.Any("error", err))
				}
				return
			}
			if ev.Key == KeyNone {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}

// Close releases the underlying device. It is idempotent; operations on a
// closed panel return ErrClosed.
func (p *Panel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.dev.Close(); err != nil {
		return fmt.Errorf("panel: close: %w", err)
	}
	return nil
}

// write sends one encoded report, serialized against other writers.
func (p *Panel) write(rep []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	slog.Debug("panel write", slog.String("report", report.HexString(rep)))
	if _, err := p.dev.Write(rep); err != nil {
		return fmt.Errorf("panel: write report: %w", err)
	}
	return nil
}

// ring sounds the feedback tone for a key without holding up the read.
func (p *Panel) ring(k Key) {
	if p.beeper == nil {
		return
	}
	freq, dur, ok := keyTone(k)
	if !ok {
		return
	}
	go func() {
		if err := p.beeper.Beep(freq, dur); err != nil {
			slog.Warn("key feedback beep failed", slog.Any("error", err))
		}
	}()
}

func (p *Panel) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
