package hid

import (
	"fmt"
	"strings"
	"sync"
	"time"

	hidapi "github.com/sstallion/go-hid"
)

var (
	hidapiOnce sync.Once
	hidapiErr  error
)

type hidapiManager struct{}

func newHidapiManager() (Manager, error) {
	hidapiOnce.Do(func() { hidapiErr = hidapi.Init() })
	if hidapiErr != nil {
		return nil, fmt.Errorf("hidapi init: %w", hidapiErr)
	}
	return &hidapiManager{}, nil
}

func (m *hidapiManager) List(vendorID, productID uint16) ([]Info, error) {
	var out []Info
	err := hidapi.Enumerate(vendorID, productID, func(info *hidapi.DeviceInfo) error {
		out = append(out, Info{
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Product:      info.ProductStr,
			Manufacturer: info.MfrStr,
			SerialNumber: info.SerialNbr,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("hidapi enumerate: %w", err)
	}
	return out, nil
}

func (m *hidapiManager) Open(info Info) (Device, error) {
	d, err := hidapi.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("hidapi open %s: %w", info.Path, err)
	}
	return &hidapiDevice{d: d}, nil
}

func (m *hidapiManager) OpenVIDPID(vendorID, productID uint16) (Device, error) {
	devs, err := m.List(vendorID, productID)
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%w (VID:0x%04X PID:0x%04X)", ErrDeviceNotFound, vendorID, productID)
	}
	return m.Open(devs[0])
}

type hidapiDevice struct{ d *hidapi.Device }

func (d *hidapiDevice) Write(p []byte) (int, error) {
	return d.d.Write(p)
}

// Read retries reads that hidapi aborts with EINTR; without the retry a
// signal during a blocking read surfaces as a spurious transport error.
func (d *hidapiDevice) Read(p []byte, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		for {
			n, err := d.d.Read(p)
			if err == nil || !interruptedRead(err) {
				return n, err
			}
		}
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil
		}
		n, err := d.d.ReadWithTimeout(p, remaining)
		if err == nil || !interruptedRead(err) {
			return n, err
		}
	}
}

func (d *hidapiDevice) Close() error {
	return d.d.Close()
}

// interruptedRead reports whether err is hidapi's rendering of EINTR.
// hidapi flattens the errno into a message, so match on the string.
func interruptedRead(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Interrupted system call")
}
