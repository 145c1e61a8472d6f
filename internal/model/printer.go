package model

import "strings"

// PrinterStatus describes the last observed state of a detected printer.
type PrinterStatus string

const (
	PrinterOnline   PrinterStatus = "online"
	PrinterOffline  PrinterStatus = "offline"
	PrinterInactive PrinterStatus = "inactive"
	PrinterError    PrinterStatus = "error"
)

// TransportKind selects how receipt bytes reach the printer.
type TransportKind string

const (
	// TransportDevicePath writes raw bytes to a character device file.
	TransportDevicePath TransportKind = "device"
	// TransportUSB addresses the printer by vendor:product pair and talks
	// ESC/POS over a stateful session.
	TransportUSB TransportKind = "usb"
	// TransportSimulated accepts writes and always succeeds. Used when no
	// physical transport resolves so the queue never wedges on missing
	// hardware.
	TransportSimulated TransportKind = "simulated"
)

// Transport is the concrete I/O path used to reach a printer.
type Transport struct {
	Kind      TransportKind `json:"kind"`
	Path      string        `json:"path,omitempty"`
	VendorID  string        `json:"vendorId,omitempty"`
	ProductID string        `json:"productId,omitempty"`
}

func (t Transport) Simulated() bool { return t.Kind == TransportSimulated }

// PrinterDescriptor is rebuilt on every detection cycle and never persisted.
type PrinterDescriptor struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Status      PrinterStatus `json:"status"`
	Transport   Transport     `json:"transport"`
	CanActivate bool          `json:"canActivate"`
}

// IdentityKey is the deduplication key for detected printers: the
// vendor:product pair when present, otherwise the normalized name.
func (p PrinterDescriptor) IdentityKey() string {
	if p.Transport.VendorID != "" && p.Transport.ProductID != "" {
		return p.Transport.VendorID + ":" + p.Transport.ProductID
	}
	return NormalizeName(p.DisplayName)
}

// NormalizeName lowercases a printer name and strips all whitespace so the
// same device enumerated by different strategies collapses to one key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
