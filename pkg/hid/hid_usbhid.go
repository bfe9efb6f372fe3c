package hid

import (
	"fmt"
	"sync"
	"time"

	usbhid "rafaelmartins.com/p/usbhid"
)

type usbhidManager struct{}

func (m *usbhidManager) List(vendorID, productID uint16) ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, fmt.Errorf("usbhid enumerate: %w", err)
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		if vendorID != 0 && d.VendorId() != vendorID {
			continue
		}
		if productID != 0 && d.ProductId() != productID {
			continue
		}
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
			SerialNumber: d.SerialNumber(),
		})
	}
	return out, nil
}

func (m *usbhidManager) Open(info Info) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, false)
	if err != nil {
		return nil, fmt.Errorf("usbhid open %s: %w", info.Path, err)
	}
	return newUSBHIDDevice(d), nil
}

func (m *usbhidManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	devs, err := m.List(vendorID, productID)
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
	}
	return m.Open(devs[0])
}

// usbhidDevice adapts the library's blocking GetInputReport to the timeout
// read contract: a pump goroutine drains input reports into a buffered
// channel and Read selects against a timer. Reports arriving after a timed
// out Read stay queued for the next one.
type usbhidDevice struct {
	d       *usbhid.Device
	reports chan []byte
	readErr error // set by the pump before reports is closed
	done    chan struct{}
	once    sync.Once
}

func newUSBHIDDevice(d *usbhid.Device) *usbhidDevice {
	dev := &usbhidDevice{
		d:       d,
		reports: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	go dev.pump()
	return dev
}

func (dev *usbhidDevice) pump() {
	defer close(dev.reports)
	for {
		id, data, err := dev.d.GetInputReport()
		if err != nil {
			select {
			case <-dev.done:
				// read failed because Close tore the device down
			default:
				dev.readErr = err
			}
			return
		}
		// restore the report ID as the leading byte to match hidapi reads
		buf := make([]byte, 0, len(data)+1)
		buf = append(buf, id)
		buf = append(buf, data...)
		select {
		case dev.reports <- buf:
		case <-dev.done:
			return
		}
	}
}

func (dev *usbhidDevice) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := dev.d.SetOutputReport(p[0], p[1:]); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (dev *usbhidDevice) Read(p []byte, timeout time.Duration) (int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case buf, ok := <-dev.reports:
		if !ok {
			if dev.readErr != nil {
				return 0, dev.readErr
			}
			return 0, ErrDeviceClosed
		}
		return copy(p, buf), nil
	case <-expired:
		return 0, nil
	}
}

func (dev *usbhidDevice) Close() error {
	var err error
	dev.once.Do(func() {
		close(dev.done)
		err = dev.d.Close()
	})
	return err
}
