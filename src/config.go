package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Load the read-only configuration block: filter/differentiator
 *		coefficients, bus-failure timeouts, and the AHR/PFD label
 *		tables.
 *
 * Description:	Originally this was a fixed record at a known memory
 *		address (spec.md section 6). Here it's a YAML file read at
 *		startup, searched for across a fixed set of locations the
 *		way deviceid.go looks for tocalls.yaml, falling back to
 *		built-in defaults if none of them exist.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the whole of the startup configuration block.
type Config struct {
	Filter struct {
		K1 float64 `yaml:"k1"`
		K2 float64 `yaml:"k2"`
	} `yaml:"filter"`

	Differentiator struct {
		K1           float64 `yaml:"k1"`
		SampleRateHz float64 `yaml:"sample_rate_hz"`
		LowerLimit   float64 `yaml:"lower_limit"`
		UpperLimit   float64 `yaml:"upper_limit"`
		LowerDelta   float64 `yaml:"lower_delta"`
		UpperDelta   float64 `yaml:"upper_delta"`
	} `yaml:"differentiator"`

	MaxBusFailureCounts uint32 `yaml:"max_bus_failure_counts"`

	// CRCKey is the polynomial used for the program-memory CRC checked at
	// boot (spec.md section 6: CRC key 0x04C11DB7).
	CRCKey uint32 `yaml:"crc_key"`

	AHRLabels []LabelConfig `yaml:"ahr_labels"`
	PFDLabels []LabelConfig `yaml:"pfd_labels"`
	ADCLabels []LabelConfig `yaml:"adc_labels"`
}

// configSearchLocations mirrors deviceid.go's search list: current
// directory first, then the source tree, then system-wide install paths.
var configSearchLocations = []string{
	"arincbridge.yaml",
	"config/arincbridge.yaml",
	"../config/arincbridge.yaml",
	"/usr/local/share/arincbridge/arincbridge.yaml",
	"/usr/share/arincbridge/arincbridge.yaml",
}

// DefaultConfig returns the built-in configuration matching spec.md
// section 6's config block, used when no config file is found.
func DefaultConfig() *Config {
	c := &Config{}
	c.Filter.K1 = 0.7777678
	c.Filter.K2 = 0.2222322
	c.Differentiator.K1 = 0.99
	c.Differentiator.SampleRateHz = 50
	c.Differentiator.LowerLimit = -180
	c.Differentiator.UpperLimit = 180
	c.Differentiator.LowerDelta = -360
	c.Differentiator.UpperDelta = 360
	c.MaxBusFailureCounts = 10
	c.CRCKey = 0x04C11DB7
	return c
}

// LoadConfig searches configSearchLocations for a YAML config file and
// parses it; if none is found, it returns DefaultConfig(). A file that
// exists but fails to parse is a configuration error.
func LoadConfig() (*Config, error) {
	var data []byte
	var foundPath string
	for _, path := range configSearchLocations {
		b, err := os.ReadFile(path)
		if err == nil {
			data = b
			foundPath = path
			break
		}
	}

	if foundPath == "" {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: LoadConfig: parsing %s: %w", ErrConfiguration, foundPath, err)
	}
	return cfg, nil
}
