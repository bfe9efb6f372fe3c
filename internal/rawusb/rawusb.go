// Package rawusb opens the front panel through raw USB interrupt
// transfers instead of a HID driver. It covers hosts with no hidraw or
// hidapi stack; the kernel HID driver must not have the interface claimed.
package rawusb

import (
	"fmt"
	"sync"
	"time"

	"github.com/karalabe/usb"

	"github.com/rackfront/celestix/pkg/hid"
)

// readLen caps one interrupt IN transfer. The panel's packets fit in a
// single full-speed USB frame.
const readLen = 64

// Manager adapts the raw USB stack to the hid.Manager contract.
type Manager struct{}

func (Manager) List(vendorID, productID uint16) ([]hid.Info, error) {
	infos, err := usb.Enumerate(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("rawusb enumerate: %w", err)
	}
	out := make([]hid.Info, 0, len(infos))
	for _, in := range infos {
		out = append(out, hid.Info{
			Path:         in.Path,
			VendorID:     in.VendorID,
			ProductID:    in.ProductID,
			Product:      in.Product,
			Manufacturer: in.Manufacturer,
			SerialNumber: in.Serial,
		})
	}
	return out, nil
}

func (m Manager) Open(info hid.Info) (hid.Device, error) {
	infos, err := usb.Enumerate(0, 0)
	if err != nil {
		return nil, fmt.Errorf("rawusb enumerate: %w", err)
	}
	for _, in := range infos {
		if in.Path == info.Path {
			dev, err := in.Open()
			if err != nil {
				return nil, fmt.Errorf("rawusb open %s: %w", in.Path, err)
			}
			return newDevice(dev), nil
		}
	}
	return nil, fmt.Errorf("%w (%s)", hid.ErrDeviceNotFound, info.Path)
}

func (m Manager) OpenVIDPID(vendorID, productID uint16) (hid.Device, error) {
	infos, err := usb.Enumerate(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("rawusb enumerate: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", hid.ErrDeviceNotFound, vendorID, productID)
	}
	dev, err := infos[0].Open()
	if err != nil {
		return nil, fmt.Errorf("rawusb open: %w", err)
	}
	return newDevice(dev), nil
}

// device pumps blocking interrupt reads into a buffered channel so the
// timeout read contract holds, same as the other backends.
type device struct {
	dev     usb.Device
	reports chan []byte
	readErr error // set by the pump before reports is closed
	done    chan struct{}
	once    sync.Once
}

func newDevice(dev usb.Device) *device {
	d := &device{
		dev:     dev,
		reports: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	go d.pump()
	return d
}

func (d *device) pump() {
	defer close(d.reports)
	for {
		buf := make([]byte, readLen)
		n, err := d.dev.Read(buf)
		if err != nil {
			select {
			case <-d.done:
				// read failed because Close tore the device down
			default:
				d.readErr = err
			}
			return
		}
		select {
		case d.reports <- buf[:n]:
		case <-d.done:
			return
		}
	}
}

func (d *device) Write(p []byte) (int, error) {
	n, err := d.dev.Write(p)
	if err != nil {
		return n, fmt.Errorf("rawusb write: %w", err)
	}
	return n, nil
}

func (d *device) Read(p []byte, timeout time.Duration) (int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case buf, ok := <-d.reports:
		if !ok {
			if d.readErr != nil {
				return 0, fmt.Errorf("rawusb read: %w", d.readErr)
			}
			return 0, hid.ErrDeviceClosed
		}
		return copy(p, buf), nil
	case <-expired:
		return 0, nil
	}
}

func (d *device) Close() error {
	var err error
	d.once.Do(func() {
		close(d.done)
		err = d.dev.Close()
	})
	return err
}
