//go:build linux

package device

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mesa-livre/print-agent/internal/model"
)

// sysUSBMiscGlob matches the usblp class devices the kernel exposes for USB
// printers. Overridable in tests.
var sysUSBMiscGlob = "/sys/class/usbmisc/lp*"

// discoverUSB walks the usblp class devices and reads the vendor/product
// identity from sysfs. This catches printers that are plugged in but not
// configured in CUPS.
func (l *Locator) discoverUSB() ([]model.PrinterDescriptor, error) {
	matches, err := filepath.Glob(sysUSBMiscGlob)
	if err != nil {
		return nil, err
	}

	var out []model.PrinterDescriptor
	for _, lpDir := range matches {
		// lpN/device -> usb interface dir; its parent holds idVendor,
		// idProduct and product.
		usbDir := filepath.Join(lpDir, "device", "..")
		vendor := readSysfs(filepath.Join(usbDir, "idVendor"))
		product := readSysfs(filepath.Join(usbDir, "idProduct"))
		name := readSysfs(filepath.Join(usbDir, "product"))
		if name == "" {
			name = "USB printer " + filepath.Base(lpDir)
		}

		devPath := "/dev/usb/" + filepath.Base(lpDir)
		status := model.PrinterOnline
		if _, err := os.Stat(devPath); err != nil {
			status = model.PrinterOffline
		}

		id := vendor + ":" + product
		if vendor == "" || product == "" {
			id = model.NormalizeName(name)
		}
		out = append(out, model.PrinterDescriptor{
			ID:          id,
			DisplayName: name,
			Status:      status,
			Transport: model.Transport{
				Kind:      model.TransportUSB,
				Path:      devPath,
				VendorID:  vendor,
				ProductID: product,
			},
		})
	}
	return out, nil
}

func readSysfs(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
