package snapshot

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"trio-driver/internal/telemetry"
)

//go:embed mapping.yaml
var defaultMapping []byte

// Statistic groups the mapper fills.
const (
	GroupDeviceInfo    = "DeviceInfo"
	GroupNetworkInfo   = "NetworkInfo"
	GroupRunningConfig = "RunningConfig"
	GroupDeviceStatus  = "DeviceStatus"
	GroupTransferType  = "TransferType"
)

type mappingFile struct {
	Groups map[string]map[string]string `yaml:"groups"`
}

// Mapper copies selected response members into flat "Group#Property"
// statistics.
type Mapper struct {
	groups map[string]map[string]string
}

// LoadMapper reads a mapping file, or the built-in mapping when path is empty.
func LoadMapper(path string) (*Mapper, error) {
	if path == "" {
		return ParseMapping(defaultMapping)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read mapping: %w", err)
	}
	return ParseMapping(b)
}

func ParseMapping(b []byte) (*Mapper, error) {
	var f mappingFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("snapshot: parse mapping: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("snapshot: mapping defines no groups")
	}
	for group, props := range f.Groups {
		for prop, src := range props {
			if strings.TrimSpace(src) == "" {
				return nil, fmt.Errorf("snapshot: mapping %s#%s has no source", group, prop)
			}
		}
	}
	return &Mapper{groups: f.Groups}, nil
}

// Apply writes the mapped members of data for group into dst. Members that
// are missing or not scalar are skipped.
func (m *Mapper) Apply(dst map[string]string, group string, data telemetry.Object) {
	if data == nil {
		return
	}
	for prop, src := range m.groups[group] {
		if v, ok := lookup(data, src); ok {
			dst[group+"#"+prop] = v
		}
	}
}

func lookup(data telemetry.Object, path string) (string, bool) {
	parts := strings.Split(path, ".")
	obj := data
	for _, p := range parts[:len(parts)-1] {
		obj = obj.Object(p)
		if obj == nil {
			return "", false
		}
	}
	return obj.String(parts[len(parts)-1])
}
