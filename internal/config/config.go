package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/serialmux"
	"github.com/banshee-data/imu.visualiser/internal/units"
)

// maxFileSize caps config files at 1MB.
const maxFileSize = 1 * 1024 * 1024

// Config represents the visualiser configuration. Every field is optional;
// the Get* methods supply defaults for anything left unset, so partial files
// are safe. The same schema is accepted as JSON or YAML.
type Config struct {
	// Smoothing and orientation
	WindowSize      *int       `json:"window_size,omitempty" yaml:"window_size,omitempty"`
	ReferenceVector *[]float64 `json:"reference_vector,omitempty" yaml:"reference_vector,omitempty"`
	AngleUnit       *string    `json:"angle_unit,omitempty" yaml:"angle_unit,omitempty"`

	// Serial source
	SerialPort *string `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	DataBits   *int    `json:"data_bits,omitempty" yaml:"data_bits,omitempty"`
	StopBits   *int    `json:"stop_bits,omitempty" yaml:"stop_bits,omitempty"`
	Parity     *string `json:"parity,omitempty" yaml:"parity,omitempty"`

	// Simulated source used in dev mode
	SimulateRateHz   *float64 `json:"simulate_rate_hz,omitempty" yaml:"simulate_rate_hz,omitempty"`
	SimulateAltitude *bool    `json:"simulate_altitude,omitempty" yaml:"simulate_altitude,omitempty"`

	// Rendering
	RenderInterval *string `json:"render_interval,omitempty" yaml:"render_interval,omitempty"` // duration string like "200ms"
	StatusInterval *string `json:"status_interval,omitempty" yaml:"status_interval,omitempty"` // duration string like "5s"
	HTMLOutput     *string `json:"html_output,omitempty" yaml:"html_output,omitempty"`
	TraceOutput    *string `json:"trace_output,omitempty" yaml:"trace_output,omitempty"`
	TraceSamples   *int    `json:"trace_samples,omitempty" yaml:"trace_samples,omitempty"`
	Verbose        *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated with its default.
func DefaultConfig() *Config {
	ref := []float64{0, 0, 1}
	return &Config{
		WindowSize:       ptrInt(5),
		ReferenceVector:  &ref,
		AngleUnit:        ptrString(units.Degrees),
		SerialPort:       ptrString(""),
		BaudRate:         ptrInt(serialmux.DefaultBaudRate),
		DataBits:         ptrInt(8),
		StopBits:         ptrInt(1),
		Parity:           ptrString("N"),
		SimulateRateHz:   ptrFloat64(10),
		SimulateAltitude: ptrBool(false),
		RenderInterval:   ptrString("200ms"),
		StatusInterval:   ptrString("5s"),
		HTMLOutput:       ptrString(""),
		TraceOutput:      ptrString(""),
		TraceSamples:     ptrInt(600),
		Verbose:          ptrBool(false),
	}
}

// LoadConfig loads a Config from a JSON or YAML file, chosen by extension.
// The file must be under the max file size. Fields omitted from the file
// retain their default values.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadConfigFS is LoadConfig reading through fsys.
func LoadConfigFS(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}
	if !fsys.Exists(cleanPath) {
		return nil, fmt.Errorf("config file not found: %s", cleanPath)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), maxFileSize)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.WindowSize != nil && *c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", *c.WindowSize)
	}

	if c.ReferenceVector != nil {
		ref := *c.ReferenceVector
		if len(ref) != 3 {
			return fmt.Errorf("reference_vector must have 3 components, got %d", len(ref))
		}
		if ref[0] == 0 && ref[1] == 0 && ref[2] == 0 {
			return fmt.Errorf("reference_vector must be non-zero")
		}
	}

	// Input angles are always degrees; the field exists so files say so explicitly.
	if c.AngleUnit != nil && *c.AngleUnit != units.Degrees {
		if !units.IsValid(*c.AngleUnit) {
			return fmt.Errorf("angle_unit %q is not one of %s", *c.AngleUnit, units.GetValidUnitsString())
		}
		return fmt.Errorf("angle_unit must be %q, got %q", units.Degrees, *c.AngleUnit)
	}

	if _, err := c.PortOptions().Normalize(); err != nil {
		return fmt.Errorf("invalid serial options: %w", err)
	}

	if c.SimulateRateHz != nil && *c.SimulateRateHz <= 0 {
		return fmt.Errorf("simulate_rate_hz must be positive, got %f", *c.SimulateRateHz)
	}

	for name, v := range map[string]*string{"render_interval": c.RenderInterval, "status_interval": c.StatusInterval} {
		if v != nil && *v != "" {
			d, err := time.ParseDuration(*v)
			if err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
			if d < 0 {
				return fmt.Errorf("%s must be non-negative, got %s", name, d)
			}
		}
	}

	if c.TraceSamples != nil && *c.TraceSamples < 2 {
		return fmt.Errorf("trace_samples must be at least 2, got %d", *c.TraceSamples)
	}

	return nil
}

// GetWindowSize returns the window_size value or the default.
func (c *Config) GetWindowSize() int {
	if c.WindowSize == nil {
		return 5
	}
	return *c.WindowSize
}

// GetReferenceVector returns the reference_vector value or the default (0, 0, 1).
func (c *Config) GetReferenceVector() r3.Vec {
	if c.ReferenceVector == nil || len(*c.ReferenceVector) != 3 {
		return r3.Vec{Z: 1}
	}
	ref := *c.ReferenceVector
	return r3.Vec{X: ref[0], Y: ref[1], Z: ref[2]}
}

// GetSerialPort returns the serial_port value or "".
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// PortOptions collects the serial fields. Unset fields are left zero so
// serialmux applies its own defaults.
func (c *Config) PortOptions() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}

// GetSimulateRateHz returns the simulate_rate_hz value or the default.
func (c *Config) GetSimulateRateHz() float64 {
	if c.SimulateRateHz == nil {
		return 10
	}
	return *c.SimulateRateHz
}

// GetSimulateAltitude returns the simulate_altitude value or the default.
func (c *Config) GetSimulateAltitude() bool {
	if c.SimulateAltitude == nil {
		return false
	}
	return *c.SimulateAltitude
}

// GetRenderInterval parses and returns the RenderInterval as a time.Duration.
func (c *Config) GetRenderInterval() time.Duration {
	return parseDurationOr(c.RenderInterval, 200*time.Millisecond)
}

// GetStatusInterval parses and returns the StatusInterval as a time.Duration.
func (c *Config) GetStatusInterval() time.Duration {
	return parseDurationOr(c.StatusInterval, 5*time.Second)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetHTMLOutput returns the html_output path or "" when disabled.
func (c *Config) GetHTMLOutput() string {
	if c.HTMLOutput == nil {
		return ""
	}
	return *c.HTMLOutput
}

// GetTraceOutput returns the trace_output path or "" when disabled.
func (c *Config) GetTraceOutput() string {
	if c.TraceOutput == nil {
		return ""
	}
	return *c.TraceOutput
}

// GetTraceSamples returns the trace_samples value or the default.
func (c *Config) GetTraceSamples() int {
	if c.TraceSamples == nil {
		return 600
	}
	return *c.TraceSamples
}

// GetVerbose returns the verbose value or the default.
func (c *Config) GetVerbose() bool {
	if c.Verbose == nil {
		return false
	}
	return *c.Verbose
}
