package printer

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// Printer sends raw ESC/POS data to a receipt printer
type Printer interface {
	Print(ctx context.Context, data []byte) error
	// Ready reports whether the device can currently be reached
	Ready(ctx context.Context) bool
	// Kind is "usb", "network" or "none"
	Kind() string
}

// deviceFile writes to a character device such as /dev/usb/lp0. The device is
// opened per job so a replugged printer is picked up again.
type deviceFile struct {
	path string
}

// NewUSBPrinter creates a printer that writes to a USB device file
func NewUSBPrinter(devicePath string) Printer {
	return &deviceFile{path: devicePath}
}

func (p *deviceFile) Print(_ context.Context, data []byte) error {
	f, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: open %s: %w", p.path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.path, err)
	}
	return nil
}

func (p *deviceFile) Ready(context.Context) bool {
	_, err := os.Stat(p.path)
	return err == nil
}

func (p *deviceFile) Kind() string { return "usb" }

// rawTCP speaks to a network printer on its raw port, usually 9100
type rawTCP struct {
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewNetworkPrinter creates a printer reached over TCP, e.g. "192.168.1.100:9100"
func NewNetworkPrinter(address string) Printer {
	return &rawTCP{
		address:      address,
		dialTimeout:  5 * time.Second,
		writeTimeout: 10 * time.Second,
	}
}

func (p *rawTCP) dial(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", p.address)
}

func (p *rawTCP) Print(ctx context.Context, data []byte) error {
	conn, err := p.dial(ctx, p.dialTimeout)
	if err != nil {
		return fmt.Errorf("printer: connect %s: %w", p.address, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("printer: write %s: %w", p.address, err)
	}
	return nil
}

func (p *rawTCP) Ready(ctx context.Context) bool {
	conn, err := p.dial(ctx, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *rawTCP) Kind() string { return "network" }

// discard is used when the lab has no receipt printer; receipts are still
// rendered for on-screen preview
type discard struct{}

// NewNullPrinter creates a printer that drops every job
func NewNullPrinter() Printer {
	return discard{}
}

func (discard) Print(context.Context, []byte) error { return nil }
func (discard) Ready(context.Context) bool { return false }
func (discard) Kind() string { return "none" }

// New picks the printer for printerType: "usb", "network" or "none"
func New(printerType, usbPath, address string) (Printer, error) {
	switch printerType {
	case "usb":
		if usbPath == "" {
			return nil, fmt.Errorf("printer: USB path is required for USB printer type")
		}
		return NewUSBPrinter(usbPath), nil
	case "network":
		if address == "" {
			return nil, fmt.Errorf("printer: address is required for network printer type")
		}
		return NewNetworkPrinter(address), nil
	case "none", "":
		return NewNullPrinter(), nil
	default:
		return nil, fmt.Errorf("printer: unknown printer type %q (use usb, network, or none)", printerType)
	}
}
