// Package hid abstracts raw HID report transport so the panel layer can run
// against hidapi, a pure Go backend, or an in-memory mock.
package hid

import (
	"errors"
	"time"
)

// ErrDeviceNotFound is returned when enumeration finds no matching device.
var ErrDeviceNotFound = errors.New("hid: device not found")

// ErrDeviceClosed is returned for report I/O on a closed device.
var ErrDeviceClosed = errors.New("hid: device closed")

// Device represents an opened HID device capable of report I/O.
//
// Write sends one output report; p[0] carries the report ID. Read fills p
// with one input report, report ID first, and returns the byte count. A
// timeout greater than zero bounds the wait and expiry returns (0, nil);
// zero or negative blocks until a report arrives.
type Device interface {
	Write(p []byte) (int, error)
	Read(p []byte, timeout time.Duration) (int, error)
	Close() error
}

// Info represents a HID device descriptor.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string
	SerialNumber string
}

// Manager enumerates and opens HID devices. A zero vendor or product ID
// acts as a wildcard when listing.
type Manager interface {
	List(vendorID, productID uint16) ([]Info, error)
	Open(info Info) (Device, error)
	OpenVIDPID(vendorID, productID uint16) (Device, error)
}

// NewManager returns the hidapi-backed manager. It needs the hidapi shared
// library at runtime and is the default backend.
func NewManager() (Manager, error) {
	return newHidapiManager()
}

// NewPureGoManager returns a manager built on a pure Go HID stack with no
// cgo or shared-library requirement. Reads are pumped through an internal
// goroutine to honor the Device read timeout.
func NewPureGoManager() (Manager, error) {
	return &usbhidManager{}, nil
}
