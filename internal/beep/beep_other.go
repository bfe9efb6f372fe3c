//go:build !linux

package beep

// Default returns the beep(1) beeper when available, otherwise silence.
// The console speaker ioctl is Linux only.
func Default() Beeper {
	return fromPath()
}
