// Package device enumerates candidate printers on the host and resolves one
// working transport per logical printer. Discovery is best-effort everywhere:
// a strategy that fails is logged and skipped, because partial results are
// still useful.
package device

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mesa-livre/print-agent/internal/model"
)

// DefaultFallbackPaths are the device nodes thermal printers commonly appear
// at. The effective list comes from config; this is only the seed.
var DefaultFallbackPaths = []string{
	"/dev/usb/lp0",
	"/dev/usb/lp1",
	"/dev/lp0",
	"/dev/ttyUSB0",
}

// Locator discovers printers and resolves transports.
type Locator struct {
	log           *logrus.Logger
	fallbackPaths []string
}

func NewLocator(log *logrus.Logger, fallbackPaths []string) *Locator {
	if len(fallbackPaths) == 0 {
		fallbackPaths = DefaultFallbackPaths
	}
	return &Locator{log: log, fallbackPaths: fallbackPaths}
}

type strategy struct {
	name string
	run  func(*Locator) ([]model.PrinterDescriptor, error)
}

var strategies = []strategy{
	{"system-registry", (*Locator).discoverRegistry},
	{"usb-bus", (*Locator).discoverUSB},
	{"device-paths", (*Locator).discoverDevicePaths},
	{"ensure-device-nodes", (*Locator).ensureDeviceNodes},
}

// Discover runs every enumeration strategy in sequence, concatenates the
// results and deduplicates by identity key, first occurrence winning. It is
// idempotent and never returns an error; zero printers means "no hardware",
// not a failure.
func (l *Locator) Discover() []model.PrinterDescriptor {
	var all []model.PrinterDescriptor
	for _, s := range strategies {
		found, err := s.run(l)
		if err != nil {
			l.log.WithField("strategy", s.name).WithError(err).Debug("printer enumeration strategy failed")
			continue
		}
		all = append(all, found...)
	}

	seen := make(map[string]bool, len(all))
	out := make([]model.PrinterDescriptor, 0, len(all))
	for _, p := range all {
		key := p.IdentityKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Resolve turns a requested device path into a working transport: the
// requested path first, then the configured fallback list; the first path
// that exists and is accessible wins. When nothing resolves, the simulation
// transport is returned so the print queue never wedges on missing
// hardware — the lost paper is reported through status, not by blocking.
func (l *Locator) Resolve(requested string) model.Transport {
	candidates := l.fallbackPaths
	if requested != "" {
		candidates = append([]string{requested}, l.fallbackPaths...)
	}
	for _, path := range candidates {
		if pathAccessible(path) {
			return model.Transport{Kind: model.TransportDevicePath, Path: path}
		}
	}
	l.log.WithField("requested", requested).Warn("no printer device path resolved, falling back to simulation")
	return model.Transport{Kind: model.TransportSimulated}
}

// discoverDevicePaths reports a descriptor for every known device node that
// exists on this host.
func (l *Locator) discoverDevicePaths() ([]model.PrinterDescriptor, error) {
	var out []model.PrinterDescriptor
	for _, path := range l.fallbackPaths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		status := model.PrinterOnline
		if info.Mode()&os.ModeCharDevice == 0 {
			// a regular file standing in for a device is fine for
			// development, report it as such
			status = model.PrinterInactive
		}
		out = append(out, model.PrinterDescriptor{
			ID:          model.NormalizeName(path),
			DisplayName: path,
			Status:      status,
			Transport:   model.Transport{Kind: model.TransportDevicePath, Path: path},
		})
	}
	return out, nil
}

func pathAccessible(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
