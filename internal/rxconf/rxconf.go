// Package rxconf loads the optional YAML configuration file shared by
// both binaries: interface prefix, ports, logging level, and metrics
// address. CLI flags always take precedence; a config file only supplies
// defaults for flags the operator didn't set.
package rxconf

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Receiver holds cmd/receiver's configurable values.
type Receiver struct {
	UDPPort     int    `yaml:"udp_port"`
	Prefix      int    `yaml:"prefix"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Deluge holds cmd/deluge's configurable values.
type Deluge struct {
	TargetPort  int    `yaml:"target_port"`
	Target      string `yaml:"target"`
	Target2     string `yaml:"target_2"`
	ToFirst     int    `yaml:"to_first"`
	TriggerPort int    `yaml:"trigger_port"`
	Prefix      int    `yaml:"prefix"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func (r *Receiver) setDefaults() {
	if r.UDPPort == 0 {
		r.UDPPort = 30000
	}
	if r.Prefix == 0 {
		r.Prefix = 192
	}
	if r.LogLevel == "" {
		r.LogLevel = "info"
	}
}

func (r *Receiver) validate() error {
	var allErrors []error
	if r.UDPPort <= 0 || r.UDPPort > 65535 {
		allErrors = append(allErrors, fmt.Errorf("udp_port out of range: %d", r.UDPPort))
	}
	if r.Prefix < 0 || r.Prefix > 255 {
		allErrors = append(allErrors, fmt.Errorf("prefix out of range: %d", r.Prefix))
	}
	return writeErr(allErrors)
}

func (d *Deluge) setDefaults() {
	if d.TargetPort == 0 {
		d.TargetPort = 30000
	}
	if d.ToFirst == 0 {
		d.ToFirst = 9
	}
	if d.TriggerPort == 0 {
		d.TriggerPort = 9999
	}
	if d.Prefix == 0 {
		d.Prefix = 192
	}
	if d.LogLevel == "" {
		d.LogLevel = "info"
	}
}

func (d *Deluge) validate() error {
	var allErrors []error
	if d.TargetPort <= 0 || d.TargetPort > 65535 {
		allErrors = append(allErrors, fmt.Errorf("target_port out of range: %d", d.TargetPort))
	}
	if d.TriggerPort <= 0 || d.TriggerPort > 65535 {
		allErrors = append(allErrors, fmt.Errorf("trigger_port out of range: %d", d.TriggerPort))
	}
	if d.Prefix < 0 || d.Prefix > 255 {
		allErrors = append(allErrors, fmt.Errorf("prefix out of range: %d", d.Prefix))
	}
	return writeErr(allErrors)
}

// LoadReceiver reads, defaults, and validates a Receiver config from
// path. An empty path returns a config populated with defaults only.
func LoadReceiver(path string) (*Receiver, error) {
	r := &Receiver{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, r); err != nil {
			return nil, err
		}
	}
	r.setDefaults()
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadDeluge reads, defaults, and validates a Deluge config from path. An
// empty path returns a config populated with defaults only.
func LoadDeluge(path string) (*Deluge, error) {
	d := &Deluge{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, d); err != nil {
			return nil, err
		}
	}
	d.setDefaults()
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func writeErr(allErrors []error) error {
	if len(allErrors) > 0 {
		var messages []string
		for _, err := range allErrors {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}
