package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/imu.visualiser/internal/config"
	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/monitoring"
	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/serialmux"
)

// TestFlagDefaults verifies every flag exists with a zero default, so an
// unset flag never overrides the config file.
func TestFlagDefaults(t *testing.T) {
	if *configFile != "" || *port != "" || *serialMode != "" || *htmlOut != "" || *traceOut != "" {
		t.Error("string flags should default to empty")
	}
	if *baud != 0 || *window != 0 {
		t.Error("numeric flags should default to zero")
	}
	if *devMode || *listPorts || *showRaw || *verbose || *showVersion {
		t.Error("boolean flags should default to false")
	}
	if got := flagOverrides(); got != (overrides{}) {
		t.Errorf("flagOverrides() = %+v, want zero value", got)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	err := applyOverrides(cfg, overrides{port: "/dev/ttyACM0", mode: "57600/7E2", baud: 115200, window: 10, htmlOut: "a.html", traceOut: "t.png", verbose: true})
	if err != nil {
		t.Fatalf("applyOverrides failed: %v", err)
	}

	if cfg.GetSerialPort() != "/dev/ttyACM0" {
		t.Errorf("serial port = %q", cfg.GetSerialPort())
	}
	if got := cfg.PortOptions().String(); got != "115200/7E2" {
		t.Errorf("port options = %s, want 115200/7E2", got)
	}
	if cfg.GetWindowSize() != 10 {
		t.Errorf("window = %d", cfg.GetWindowSize())
	}
	if cfg.GetHTMLOutput() != "a.html" || cfg.GetTraceOutput() != "t.png" {
		t.Errorf("outputs = %q, %q", cfg.GetHTMLOutput(), cfg.GetTraceOutput())
	}
	if !cfg.GetVerbose() {
		t.Error("verbose not applied")
	}

	// Zero overrides leave the config untouched
	cfg = config.DefaultConfig()
	if err := applyOverrides(cfg, overrides{}); err != nil {
		t.Fatalf("applyOverrides failed: %v", err)
	}
	if cfg.GetWindowSize() != 5 || cfg.GetSerialPort() != "" {
		t.Errorf("zero overrides changed config: window=%d port=%q", cfg.GetWindowSize(), cfg.GetSerialPort())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)

	path := filepath.Join(dir, "imu.yaml")
	if err := os.WriteFile(path, []byte("window_size: 7\nserial_port: /dev/ttyUSB0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := loadConfig(path, overrides{window: 3, htmlOut: "imu.html"})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.GetWindowSize() != 3 {
		t.Errorf("flag should win: window = %d", cfg.GetWindowSize())
	}
	if cfg.GetSerialPort() != "/dev/ttyUSB0" {
		t.Errorf("file value lost: port = %q", cfg.GetSerialPort())
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	testChdir(t, t.TempDir())

	tests := []struct {
		name string
		o    overrides
	}{
		{"negative window", overrides{window: -1}},
		{"bad serial mode", overrides{mode: "9600/8X1"}},
		{"html extension", overrides{htmlOut: "imu.png"}},
		{"trace extension", overrides{traceOut: "trace.html"}},
		{"trace outside cwd", overrides{traceOut: "/etc/trace.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig("", tt.o); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := loadConfig("missing.json", overrides{}); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestBuildSinks(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	cfg := config.EmptyConfig()
	if got := len(buildSinks(cfg, "s1", &bytes.Buffer{}, fsys, false)); got != 1 {
		t.Errorf("expected console only, got %d sinks", got)
	}

	_ = applyOverrides(cfg, overrides{htmlOut: "imu.html", traceOut: "trace.png"})
	if got := len(buildSinks(cfg, "s1", &bytes.Buffer{}, fsys, false)); got != 3 {
		t.Errorf("expected 3 sinks, got %d", got)
	}
}

func TestOpenSource(t *testing.T) {
	cfg := config.EmptyConfig()
	if _, _, err := openSource(cfg, false); err == nil || !strings.Contains(err.Error(), "serial port is required") {
		t.Errorf("expected missing port error, got %v", err)
	}

	src, desc, err := openSource(cfg, true)
	if err != nil {
		t.Fatalf("dev source failed: %v", err)
	}
	defer src.Close()
	if !strings.Contains(desc, "simulated IMU at 10.0Hz") {
		t.Errorf("desc = %q", desc)
	}
}

func TestRun_ReplaysUntilDisconnect(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	data := strings.Join([]string{
		"Orientation:0,0,0",
		"garbage",
		"Orientation:10,0,0",
		"Orientation:20,0,0,101.5",
		"",
	}, "\n")
	source := serialmux.NewMockSerialMux([]byte(data))
	defer source.Close()

	cfg := config.EmptyConfig()
	_ = applyOverrides(cfg, overrides{htmlOut: "/out/imu.html", traceOut: "/out/trace.png"})

	var out bytes.Buffer
	fsys := fsutil.NewMemoryFileSystem()
	err := run(context.Background(), cfg, source, "mock", &out, fsys, true)
	if !errors.Is(err, pipeline.ErrSourceDisconnected) {
		t.Fatalf("expected disconnect, got %v", err)
	}

	text := out.String()
	for _, want := range []string{"accepted=3", "skipped=1", "skipped missing_delimiter: 1", "stopped: serial source disconnected"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	for _, path := range []string{"/out/imu.html", "/out/trace.png"} {
		if !fsys.Exists(path) {
			t.Errorf("expected %s to be written", path)
		}
	}
}

func TestRun_OversizedLineIsSkipped(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	data := "Orientation:0,0,0\n" + strings.Repeat("#", 70*1024) + "\nOrientation:10,0,0\nOrientation:20,0,0\n"
	source := serialmux.NewMockSerialMux([]byte(data))
	defer source.Close()

	var out bytes.Buffer
	err := run(context.Background(), config.EmptyConfig(), source, "mock", &out, fsutil.NewMemoryFileSystem(), false)
	if !errors.Is(err, pipeline.ErrSourceDisconnected) {
		t.Fatalf("expected disconnect, got %v", err)
	}

	text := out.String()
	for _, want := range []string{"accepted=3", "skipped=1", "stopped: serial source disconnected"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
