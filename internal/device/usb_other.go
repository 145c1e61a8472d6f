//go:build !linux

package device

import "github.com/mesa-livre/print-agent/internal/model"

// discoverUSB is linux-only: other platforms surface USB printers through
// their system registry instead.
func (l *Locator) discoverUSB() ([]model.PrinterDescriptor, error) {
	return nil, nil
}
