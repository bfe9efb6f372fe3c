// Package report builds the fixed-layout HID output reports understood by
// the Celestix front-panel LCD.
//
// Every output report starts with an 8-byte header:
//
//	Byte 0:   channel (0x02 for the LCD)
//	Byte 1:   command (0x00 text, 0x01 clear, 0x03 character memory)
//	Byte 2:   cursor position for text, startpos for character memory
//	Byte 3:   display line for text, always 0x00 for character memory
//	Byte 4:   payload byte count
//	Bytes 5-7: reserved, zero
//
// The payload follows the header. The clear command carries no payload; a
// full-line text write is always padded to the 40-character line so the
// report length is constant for that command.
package report

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Report channels. The first byte of every report names the sub-device it
// addresses within the composite HID device.
const (
	KeypadChannel byte = 0x01 // rotary encoder / keypad input reports
	LCDChannel    byte = 0x02 // alphanumeric LCD output reports
)

// LCD commands, carried in the second byte of an output report.
const (
	CmdText  byte = 0x00 // write the LCD text buffer
	CmdClear byte = 0x01 // clear/init the LCD
	CmdChar  byte = 0x03 // write character memory
)

// Display geometry and read sizes.
const (
	LineLength = 40 // characters per display line
	NumLines   = 2  // display lines, addressed 0 and 1

	CharSlots     = 8  // custom character slots; the firmware reserves 6 and 7
	MaxBitmapRows = 48 // rows accepted by a single character-memory write

	KeyReportLength = 6  // keypad input report read size
	RawReportLength = 63 // raw passthrough read size

	headerLength = 8
)

// Substitute is the byte written in place of characters outside the
// display's Latin-1 repertoire.
const Substitute byte = '?'

// ErrInvalidArgument is returned when an encoder precondition is violated.
// Errors wrapping it name the offending value.
var ErrInvalidArgument = errors.New("invalid argument")

// header assembles the 8-byte report header shared by all LCD commands.
func header(cmd, cursor, line, length byte) []byte {
	return []byte{LCDChannel, cmd, cursor, line, length, 0x00, 0x00, 0x00}
}

// EncodeClear builds the report that clears the LCD text memory. The result
// is the same 8 bytes on every call.
func EncodeClear() []byte {
	return header(CmdClear, 0, 0, 0)
}

// EncodeWriteLine builds a full-line text write: text is truncated to the
// 40-character line and space padded so the whole line is overwritten.
// line must be 0 or 1.
func EncodeWriteLine(text string, line int) ([]byte, error) {
	if line < 0 || line >= NumLines {
		return nil, fmt.Errorf("%w: line must be 0 or 1, got %d", ErrInvalidArgument, line)
	}
	msg := encodeText(text)
	buf := make([]byte, 0, headerLength+LineLength)
	buf = append(buf, header(CmdText, 0, byte(line), LineLength)...)
	buf = append(buf, msg...)
	for len(buf) < headerLength+LineLength {
		buf = append(buf, ' ')
	}
	return buf, nil
}

// EncodeWriteString builds a partial text write at the given cursor
// position, leaving the rest of the on-device line buffer untouched.
// line must be 0 or 1 and cursor within 0-39.
func EncodeWriteString(text string, line, cursor int) ([]byte, error) {
	if line < 0 || line >= NumLines {
		return nil, fmt.Errorf("%w: line must be 0 or 1, got %d", ErrInvalidArgument, line)
	}
	if cursor < 0 || cursor >= LineLength {
		return nil, fmt.Errorf("%w: cursor must be 0-39, got %d", ErrInvalidArgument, cursor)
	}
	msg := encodeText(text)
	buf := make([]byte, 0, headerLength+len(msg))
	buf = append(buf, header(CmdText, byte(cursor), byte(line), byte(len(msg)))...)
	buf = append(buf, msg...)
	return buf, nil
}

// EncodeCustomChar builds a character-memory write placing bitmap rows at
// the given slot. Slots are 8 bytes apart in character memory; a bitmap
// holds 1-48 rows with the low 5 bits of each row significant. Slots 6 and
// 7 belong to the firmware, but the encoder does not second-guess callers
// that address them.
func EncodeCustomChar(location int, bitmap []byte) ([]byte, error) {
	if location < 0 || location >= CharSlots {
		return nil, fmt.Errorf("%w: location must be 0-7, got %d", ErrInvalidArgument, location)
	}
	if len(bitmap) < 1 || len(bitmap) > MaxBitmapRows {
		return nil, fmt.Errorf("%w: bitmap must have 1-48 rows, got %d", ErrInvalidArgument, len(bitmap))
	}
	buf := make([]byte, 0, headerLength+len(bitmap))
	buf = append(buf, header(CmdChar, byte(location*8), 0, byte(len(bitmap)))...)
	buf = append(buf, bitmap...)
	return buf, nil
}

// encodeText converts text to the display's Latin-1 byte encoding, keeping
// at most one line's worth of characters. Characters without a Latin-1
// equivalent become Substitute rather than failing the write.
func encodeText(text string) []byte {
	out := make([]byte, 0, LineLength)
	for _, r := range text {
		if len(out) == LineLength {
			break
		}
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = Substitute
		}
		out = append(out, b)
	}
	return out
}

// HexString renders report bytes as dashed hex pairs for log output.
func HexString(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}
