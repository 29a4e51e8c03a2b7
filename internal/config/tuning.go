package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DedupeTuning is the on-disk TOML shape for duplicate detection tuning.
// Every key is optional; absent keys keep the configured value.
//
//	[thresholds]
//	medium = 0.8
//	low = 0.55
//
//	[scan]
//	workers = 4
//	max_records = 10000
//	timeout = "45s"
type DedupeTuning struct {
	Thresholds struct {
		High   *float64 `toml:"high"`
		Medium *float64 `toml:"medium"`
		Low    *float64 `toml:"low"`
	} `toml:"thresholds"`
	Scan struct {
		Workers    *int   `toml:"workers"`
		MaxRecords *int   `toml:"max_records"`
		Timeout    string `toml:"timeout"`
	} `toml:"scan"`

	timeout time.Duration
}

// LoadDedupeTuning reads and parses a tuning file.
func LoadDedupeTuning(path string) (*DedupeTuning, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- tuning file path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read dedupe tuning file '%s': %w", path, err)
	}
	return ParseDedupeTuning(data)
}

// ParseDedupeTuning parses tuning TOML.
func ParseDedupeTuning(data []byte) (*DedupeTuning, error) {
	var t DedupeTuning
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse dedupe tuning TOML: %w", err)
	}
	if t.Scan.Timeout != "" {
		d, err := time.ParseDuration(t.Scan.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid scan timeout %q: %w", t.Scan.Timeout, err)
		}
		t.timeout = d
	}
	return &t, nil
}

// Apply overlays the tuning onto a dedupe config.
func (t *DedupeTuning) Apply(c *DedupeConfig) {
	if t.Thresholds.High != nil {
		c.Thresholds.High = *t.Thresholds.High
	}
	if t.Thresholds.Medium != nil {
		c.Thresholds.Medium = *t.Thresholds.Medium
	}
	if t.Thresholds.Low != nil {
		c.Thresholds.Low = *t.Thresholds.Low
	}
	if t.Scan.Workers != nil {
		c.Workers = *t.Scan.Workers
	}
	if t.Scan.MaxRecords != nil {
		c.MaxRecords = *t.Scan.MaxRecords
	}
	if t.timeout > 0 {
		c.ScanTimeout = t.timeout
	}
}
