// Package beep sounds short tones on the machine's speaker for key press
// feedback. The console ioctl needs a writable virtual console, so the
// beep(1) fallback covers unprivileged processes.
package beep

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Beeper sounds a tone at freq hertz for the given duration.
type Beeper interface {
	Beep(freq int, duration time.Duration) error
}

// Command shells out to the beep(1) utility for every tone.
type Command struct {
	// Path of the beep binary. Empty means /usr/bin/beep.
	Path string
}

func (c *Command) Beep(freq int, duration time.Duration) error {
	path := c.Path
	if path == "" {
		path = "/usr/bin/beep"
	}
	if err := exec.Command(path, commandArgs(freq, duration)...).Run(); err != nil {
		return fmt.Errorf("beep: %s: %w", path, err)
	}
	return nil
}

// commandArgs renders beep(1) flags: -f frequency in hertz, -l length in
// milliseconds.
func commandArgs(freq int, duration time.Duration) []string {
	return []string{
		"-f", strconv.Itoa(freq),
		"-l", strconv.FormatInt(duration.Milliseconds(), 10),
	}
}

// Nop discards every tone.
type Nop struct{}

func (Nop) Beep(int, time.Duration) error { return nil }

// fromPath returns the beep(1) beeper when the binary is on PATH,
// otherwise Nop.
func fromPath() Beeper {
	if path, err := exec.LookPath("beep"); err == nil {
		return &Command{Path: path}
	}
	return Nop{}
}
