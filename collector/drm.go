package collector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const defaultDRMRoot = "/sys/class/drm"

// errShadersUnsupported is returned by DRM contexts, which can describe
// a GPU but not run shaders on it.
var errShadersUnsupported = errors.New("shader compilation not supported by DRM context")

// drmCard is a GraphicsContext backed by a DRM card's sysfs device node.
// Only the identification queries are answered.
type drmCard struct {
	name     string
	vendor   string
	deviceID string
	driver   string
}

// findDRMCard returns the lowest-numbered card device under root
func findDRMCard(root string) (*drmCard, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var cards []string
	for _, entry := range entries {
		if isCardDevice(entry.Name()) {
			cards = append(cards, entry.Name())
		}
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no DRM card under %s", root)
	}
	sort.Strings(cards)

	devicePath := filepath.Join(root, cards[0], "device")
	vendor, deviceID := parsePCIUevent(devicePath)
	return &drmCard{
		name:     cards[0],
		vendor:   vendor,
		deviceID: deviceID,
		driver:   readDriverName(devicePath),
	}, nil
}

func (c *drmCard) DebugRendererInfo() (string, string, bool) {
	if c.vendor == "" {
		return "", "", false
	}
	renderer := c.driver
	if c.deviceID != "" {
		renderer = strings.TrimSpace(renderer + " " + c.deviceID)
	}
	return c.vendor, renderer, true
}

func (c *drmCard) Version() string { return "DRM " + c.name }

func (c *drmCard) ShadingLanguageVersion() string { return "" }

func (c *drmCard) MaxTextureSize() (int, bool) { return 0, false }

func (c *drmCard) MaxViewportDims() ([2]int, bool) { return [2]int{}, false }

func (c *drmCard) MaxRenderbufferSize() (int, bool) { return 0, false }

func (c *drmCard) CompileProgram(string, string) (Program, error) {
	return nil, errShadersUnsupported
}

// isCardDevice matches card0, card1, ... but not connectors (card0-DP-1)
// or render nodes.
func isCardDevice(name string) bool {
	suffix, ok := strings.CutPrefix(name, "card")
	if !ok || suffix == "" {
		return false
	}
	for _, ch := range suffix {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func readDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// parsePCIUevent extracts vendor name and device id from lines like
// PCI_ID=1002:744A.
func parsePCIUevent(devicePath string) (vendor, deviceID string) {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return "", ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "PCI_ID=")
		if !ok {
			continue
		}
		ids := strings.SplitN(value, ":", 2)
		if len(ids) != 2 {
			continue
		}
		vendor = pciVendorName(strings.ToLower(ids[0]))
		deviceID = "0x" + strings.ToLower(ids[1])
	}
	return vendor, deviceID
}

func pciVendorName(vendorID string) string {
	switch vendorID {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	case "":
		return ""
	default:
		return "0x" + vendorID
	}
}
