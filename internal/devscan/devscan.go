// Package devscan finds a 9P2000.L channel exposed to a guest by QEMU's
// virtio-9p transport, without requiring the caller to know its device
// path ahead of time. Scanning is platform-specific (see scan_linux.go
// and scan_other.go); this file holds the shared result type and
// sentinel errors.
package devscan

import (
	"context"
	"errors"
)

// VirtioVendorID and VirtioDeviceID identify the QEMU virtio-9p
// transport among sibling PCI devices.
const (
	VirtioVendorID = 0x1af4
	VirtioDeviceID = 0x1009
)

// ErrNotFound is returned when no candidate device negotiates
// "9P2000.L".
var ErrNotFound = errors.New("devscan: no 9P2000.L device found")

// ErrUnsupported is returned on platforms with no scanner.
var ErrUnsupported = errors.New("devscan: not supported on this platform")

// A Found describes a device that successfully negotiated 9P2000.L.
type Found struct {
	Path    string
	Msize   uint32
	Version string
}

// Discover scans for virtio-9p channel devices and returns the first
// one whose Tversion/Rversion round trip negotiates exactly
// "9P2000.L". Candidates that exist but fail to negotiate (wrong
// dialect, I/O error, permission denied) are skipped rather than
// failing the whole scan.
func Discover(ctx context.Context) (Found, error) {
	return discover(ctx)
}
