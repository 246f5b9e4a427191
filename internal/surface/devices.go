package surface

import (
	"context"

	"github.com/dlclark/regexp2"
)

// DefaultDeviceID is the ID of the system default output.
const DefaultDeviceID = "default"

// Device is one audio output.
type Device struct {
	ID      string `json:"id"`
	GroupID string `json:"groupId"`
	Label   string `json:"label"`
	// Enabled is set for the default output, which starts enabled.
	Enabled bool `json:"enabled"`
}

// DeviceLister enumerates audio outputs.
type DeviceLister interface {
	Devices(ctx context.Context) ([]Device, error)
}

// labelRule rewrites one pattern in a device label.
type labelRule struct {
	re   *regexp2.Regexp
	with string
}

// labelRules strip the role prefix, the USB vendor:product suffix, and a
// name repeated in parentheses. The last rule needs a back-reference.
var labelRules = []labelRule{
	{regexp2.MustCompile(`^(?:Default|Communications)\s*-\s*`, regexp2.None), ""},
	{regexp2.MustCompile(`\s*\([0-9a-f]{4}:[0-9a-f]{4}\)$`, regexp2.IgnoreCase), ""},
	{regexp2.MustCompile(`^(.+)\s\(\1\)$`, regexp2.None), "$1"},
}

// CleanLabel makes a device label readable.
func CleanLabel(label string) string {
	for _, rule := range labelRules {
		out, err := rule.re.Replace(label, rule.with, -1, 1)
		if err != nil {
			continue
		}
		label = out
	}
	return label
}

// Dedupe keeps the first device of every group, cleans its label and
// enables the default output.
func Dedupe(devices []Device) []Device {
	seen := make(map[string]bool, len(devices))
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if seen[d.GroupID] {
			continue
		}
		seen[d.GroupID] = true
		d.Label = CleanLabel(d.Label)
		d.Enabled = d.ID == DefaultDeviceID
		out = append(out, d)
	}
	return out
}

// SystemDevices lists only the default output. It is used when no richer
// device backend is available.
type SystemDevices struct{}

// Devices implements DeviceLister.
func (SystemDevices) Devices(context.Context) ([]Device, error) {
	return []Device{{ID: DefaultDeviceID, GroupID: DefaultDeviceID, Label: "Default - System output"}}, nil
}
