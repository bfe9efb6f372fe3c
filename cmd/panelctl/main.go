package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rackfront/celestix/internal/beep"
	"github.com/rackfront/celestix/internal/rawusb"
	"github.com/rackfront/celestix/pkg/hid"
	"github.com/rackfront/celestix/pkg/panel"
)

var (
	backend   = flag.String("backend", "hidapi", "HID backend: hidapi, usbhid, or rawusb")
	vendorID  = flag.String("vid", "", "override vendor ID (hex)")
	productID = flag.String("pid", "", "override product ID (hex)")
	line      = flag.Int("line", 0, "display line for write (0 or 1)")
	cursor    = flag.Int("cursor", -1, "cursor position for write; negative writes the full line")
	beepTones = flag.Bool("beep", false, "sound key feedback tones")
	timeout   = flag.Duration("timeout", 5*time.Second, "read timeout for read-raw")
	verbose   = flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog   = flag.Bool("json", false, "use JSON log format")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	setupLogging()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("panelctl failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, verb string, args []string) error {
	vid, err := parseID(*vendorID, panel.VendorID)
	if err != nil {
		return err
	}
	pid, err := parseID(*productID, panel.ProductID)
	if err != nil {
		return err
	}
	mgr, err := newManager(*backend)
	if err != nil {
		return err
	}

	if verb == "list" {
		return list(mgr, vid, pid)
	}

	dev, err := mgr.OpenVIDPID(vid, pid)
	if err != nil {
		return err
	}
	var b panel.Beeper
	if *beepTones {
		b = beep.Default()
	}
	p := panel.New(dev, b)
	defer p.Close()

	switch verb {
	case "write":
		if len(args) == 0 {
			return errors.New("write: need text to write")
		}
		text := strings.Join(args, " ")
		if *cursor >= 0 {
			return p.WriteString(text, *line, *cursor)
		}
		return p.WriteLine(text, *line)
	case "clear":
		return p.Clear()
	case "char":
		return uploadChar(p, args)
	case "watch":
		return watch(ctx, p)
	case "read-raw":
		return readRaw(p)
	case "write-raw":
		return writeRaw(p, args)
	}
	return fmt.Errorf("unknown command %q", verb)
}

func newManager(name string) (hid.Manager, error) {
	switch name {
	case "hidapi":
		return hid.NewManager()
	case "usbhid":
		return hid.NewPureGoManager()
	case "rawusb":
		return rawusb.Manager{}, nil
	}
	return nil, fmt.Errorf("unknown backend %q (want hidapi, usbhid, or rawusb)", name)
}

func list(mgr hid.Manager, vid, pid uint16) error {
	infos, err := mgr.List(vid, pid)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no matching devices")
		return nil
	}
	for _, in := range infos {
		name := strings.TrimSpace(in.Manufacturer + " " + in.Product)
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%04x:%04x  %-32s %s\n", in.VendorID, in.ProductID, name, in.Path)
	}
	return nil
}

func uploadChar(p *panel.Panel, args []string) error {
	if len(args) < 2 {
		return errors.New("char: need a slot and glyph rows in hex")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("char: bad slot %q: %w", args[0], err)
	}
	rows, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil {
		return fmt.Errorf("char: bad glyph rows: %w", err)
	}
	return p.CreateChar(slot, rows)
}

func watch(ctx context.Context, p *panel.Panel) error {
	fmt.Println("watching for key events, interrupt to stop")
	for ev := range p.Watch(ctx) {
		if ev.Key == panel.KeyUnknown {
			fmt.Printf("unknown report %x\n", ev.Raw)
			continue
		}
		fmt.Println(ev.Key)
	}
	return nil
}

func readRaw(p *panel.Panel) error {
	s, err := p.ReadRaw(*timeout)
	if err != nil {
		return err
	}
	if s == "" {
		fmt.Printf("no report within %v\n", *timeout)
		return nil
	}
	fmt.Println(s)
	return nil
}

func writeRaw(p *panel.Panel, args []string) error {
	if len(args) == 0 {
		return errors.New("write-raw: need report bytes in hex")
	}
	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return fmt.Errorf("write-raw: bad report bytes: %w", err)
	}
	return p.WriteRaw(data)
}

// parseID parses a hex device ID flag, keeping def when the flag is unset.
func parseID(s string, def uint16) (uint16, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device ID %q: %w", s, err)
	}
	return uint16(v), nil
}

func setupLogging() {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if *jsonLog {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(h))
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, `Usage: panelctl [flags] <command> [args]

Commands:
  list                  print matching HID devices
  write <text>          write text to the display (-line, -cursor)
  clear                 blank the display
  char <slot> <rows>    upload a custom glyph; rows are hex bytes
  watch                 stream key events until interrupted (-beep)
  read-raw              print one raw input report as hex (-timeout)
  write-raw <hex>       send a raw report

Flags:
`)
	flag.PrintDefaults()
}
