package beep

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// consolePath is the default virtual console for the speaker ioctl.
const consolePath = "/dev/tty0"

// kiocsound starts a tone on the console speaker (linux/kd.h). Its
// argument is the PIT divisor for the wanted frequency, zero to stop.
const (
	kiocsound    = 0x4B2F
	timerClockHz = 1193180
)

// Console drives the PC speaker through the console beep ioctl. It needs
// write access to a virtual console, which usually means root.
type Console struct {
	// Path of the console device. Empty means /dev/tty0.
	Path string
}

func (c *Console) Beep(freq int, duration time.Duration) error {
	if freq <= 0 {
		return fmt.Errorf("beep: frequency must be positive, got %d", freq)
	}
	path := c.Path
	if path == "" {
		path = consolePath
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("beep: open console: %w", err)
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.IoctlSetInt(fd, kiocsound, divisor(freq)); err != nil {
		return fmt.Errorf("beep: start tone: %w", err)
	}
	time.Sleep(duration)
	if err := unix.IoctlSetInt(fd, kiocsound, 0); err != nil {
		return fmt.Errorf("beep: stop tone: %w", err)
	}
	return nil
}

// divisor converts a frequency to the PIT divisor the ioctl expects.
func divisor(freq int) int {
	return timerClockHz / freq
}

// Default picks the best available beeper: the console ioctl when a
// virtual console is writable, beep(1) when on PATH, otherwise silence.
func Default() Beeper {
	if f, err := os.OpenFile(consolePath, os.O_WRONLY, 0); err == nil {
		f.Close()
		return &Console{}
	}
	return fromPath()
}
