//go:build windows

package device

import (
	"os/exec"
	"strings"

	"github.com/mesa-livre/print-agent/internal/model"
)

// discoverRegistry lists printers the Windows spooler knows about.
func (l *Locator) discoverRegistry() ([]model.PrinterDescriptor, error) {
	cmd := exec.Command("powershell", "-Command", "Get-Printer | Select-Object -ExpandProperty Name")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var out []model.PrinterDescriptor
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		out = append(out, model.PrinterDescriptor{
			ID:          model.NormalizeName(name),
			DisplayName: name,
			Status:      model.PrinterOnline,
			Transport:   model.Transport{Kind: model.TransportDevicePath},
		})
	}
	return out, nil
}

// ensureDeviceNodes is a no-op on Windows: the spooler owns the devices.
func (l *Locator) ensureDeviceNodes() ([]model.PrinterDescriptor, error) {
	return nil, nil
}
