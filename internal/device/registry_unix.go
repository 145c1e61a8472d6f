//go:build !windows

package device

import (
	"os/exec"
	"strings"
	"syscall"

	"github.com/mesa-livre/print-agent/internal/model"
)

// discoverRegistry asks the CUPS registry for configured printers. A printer
// that lpstat reports as "not accepting" is inactive but can be brought back
// online with cupsenable, hence CanActivate.
func (l *Locator) discoverRegistry() ([]model.PrinterDescriptor, error) {
	accepting, err := lpstatNames("-a")
	if err != nil {
		return nil, err
	}
	disabled, _ := lpstatNames("-v") // best effort, used only to widen the set

	var out []model.PrinterDescriptor
	seen := make(map[string]bool)
	for _, name := range accepting {
		seen[name] = true
		out = append(out, model.PrinterDescriptor{
			ID:          model.NormalizeName(name),
			DisplayName: name,
			Status:      model.PrinterOnline,
			Transport:   model.Transport{Kind: model.TransportDevicePath},
		})
	}
	for _, name := range disabled {
		if seen[name] {
			continue
		}
		out = append(out, model.PrinterDescriptor{
			ID:          model.NormalizeName(name),
			DisplayName: name,
			Status:      model.PrinterInactive,
			CanActivate: true,
			Transport:   model.Transport{Kind: model.TransportDevicePath},
		})
	}
	return out, nil
}

func lpstatNames(flag string) ([]string, error) {
	cmd := exec.Command("lpstat", flag)
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(output), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if flag == "-v" {
			// "device for NAME: uri"
			if len(fields) < 3 || fields[0] != "device" {
				continue
			}
			name = strings.TrimSuffix(fields[2], ":")
		}
		names = append(names, name)
	}
	return names, nil
}

// ensureDeviceNodes best-effort creates the usblp character device node when
// the kernel driver is loaded but udev has not populated /dev. Needs
// privileges; failure is silently degraded because discovery must not block.
func (l *Locator) ensureDeviceNodes() ([]model.PrinterDescriptor, error) {
	const usblpMajor = 180
	if err := syscall.Mkdir("/dev/usb", 0o755); err != nil && err != syscall.EEXIST {
		return nil, nil
	}
	dev := int(mkdev(usblpMajor, 0))
	if err := syscall.Mknod("/dev/usb/lp0", syscall.S_IFCHR|0o660, dev); err != nil && err != syscall.EEXIST {
		l.log.WithError(err).Debug("cannot create printer device node, continuing without")
	}
	return nil, nil
}

func mkdev(major, minor uint32) uint64 {
	return uint64(major)<<8 | uint64(minor)
}
