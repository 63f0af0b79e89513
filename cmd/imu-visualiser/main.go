package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/imu.visualiser/internal/config"
	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/monitoring"
	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/render"
	"github.com/banshee-data/imu.visualiser/internal/security"
	"github.com/banshee-data/imu.visualiser/internal/serialmux"
	"github.com/banshee-data/imu.visualiser/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a JSON or YAML config file")
	port        = flag.String("port", "", "Serial port to use (overrides config, ignored in dev mode)")
	baud        = flag.Int("baud", 0, "Serial baud rate (overrides config)")
	serialMode  = flag.String("serial-mode", "", "Serial framing such as 115200/8N1 (overrides config; -baud wins)")
	window      = flag.Int("window", 0, "Smoothing window size in samples (overrides config)")
	devMode     = flag.Bool("dev", false, "Read from a simulated IMU instead of a serial port")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
	htmlOut     = flag.String("html", "", "Keep a 3D orientation arrow page at this path")
	traceOut    = flag.String("trace", "", "Save a PNG trace of the smoothed angles to this path on exit")
	showRaw     = flag.Bool("raw", false, "Append the raw serial line to each status line")
	verbose     = flag.Bool("verbose", false, "Log every skipped line")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// overrides holds the flag values that take precedence over the config file.
// Zero values leave the file's setting alone.
type overrides struct {
	port     string
	mode     string
	baud     int
	window   int
	htmlOut  string
	traceOut string
	verbose  bool
}

func flagOverrides() overrides {
	return overrides{
		port:     *port,
		mode:     *serialMode,
		baud:     *baud,
		window:   *window,
		htmlOut:  *htmlOut,
		traceOut: *traceOut,
		verbose:  *verbose,
	}
}

func applyOverrides(cfg *config.Config, o overrides) error {
	if o.port != "" {
		cfg.SerialPort = &o.port
	}
	if o.mode != "" {
		opts, err := serialmux.ParsePortOptions(o.mode)
		if err != nil {
			return fmt.Errorf("invalid -serial-mode: %w", err)
		}
		cfg.BaudRate, cfg.DataBits, cfg.StopBits, cfg.Parity = &opts.BaudRate, &opts.DataBits, &opts.StopBits, &opts.Parity
	}
	if o.baud != 0 {
		cfg.BaudRate = &o.baud
	}
	if o.window != 0 {
		cfg.WindowSize = &o.window
	}
	if o.htmlOut != "" {
		cfg.HTMLOutput = &o.htmlOut
	}
	if o.traceOut != "" {
		cfg.TraceOutput = &o.traceOut
	}
	if o.verbose {
		cfg.Verbose = &o.verbose
	}
	return nil
}

// loadConfig reads path (if any), applies flag overrides and validates the
// result.
func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg := config.EmptyConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := applyOverrides(cfg, o); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := security.ValidateOutputPath(cfg.GetHTMLOutput(), ".html", ".htm"); err != nil {
		return nil, err
	}
	if err := security.ValidateOutputPath(cfg.GetTraceOutput(), ".png"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildSinks always includes the console; the HTML page and trace plot are
// added when their outputs are configured.
func buildSinks(cfg *config.Config, sessionID string, w io.Writer, fsys fsutil.FileSystem, raw bool) render.MultiSink {
	sinks := render.MultiSink{render.NewConsole(w, cfg.GetRenderInterval(), raw)}
	if path := cfg.GetHTMLOutput(); path != "" {
		sinks = append(sinks, render.NewArrowPage(fsys, path, cfg.GetRenderInterval(), sessionID))
	}
	if path := cfg.GetTraceOutput(); path != "" {
		sinks = append(sinks, render.NewTracePlotter(fsys, path, cfg.GetTraceSamples(), sessionID))
	}
	return sinks
}

func openSource(cfg *config.Config, dev bool) (serialmux.SerialMuxInterface, string, error) {
	if dev {
		rate := cfg.GetSimulateRateHz()
		return serialmux.NewSimulatedSerialMux(rate, cfg.GetSimulateAltitude()), fmt.Sprintf("simulated IMU at %.1fHz", rate), nil
	}

	path := cfg.GetSerialPort()
	if path == "" {
		return nil, "", errors.New("serial port is required: use -port, serial_port in the config file, or -dev")
	}
	mux, err := serialmux.NewRealSerialMux(path, cfg.PortOptions())
	if err != nil {
		return nil, "", err
	}
	return mux, fmt.Sprintf("%s (%s)", path, cfg.PortOptions()), nil
}

func run(ctx context.Context, cfg *config.Config, source serialmux.SerialMuxInterface, desc string, out io.Writer, fsys fsutil.FileSystem, raw bool) error {
	p := pipeline.New(pipeline.Config{
		WindowSize: cfg.GetWindowSize(),
		Reference:  cfg.GetReferenceVector(),
	})
	log.Printf("[%s] reading %s, window=%d", p.ID(), desc, p.WindowSize())

	lines, errs := source.Stream(ctx)
	err := pipeline.Run(ctx, p, lines, errs, buildSinks(cfg, p.ID(), out, fsys, raw),
		pipeline.RunOptions{StatusInterval: cfg.GetStatusInterval()})

	delivered, dropped := source.Stats()
	log.Printf("[%s] serial lines delivered=%d dropped=%d", p.ID(), delivered, dropped)
	return err
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*configFile, flagOverrides())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	monitoring.SetVerbose(cfg.GetVerbose())

	source, desc, err := openSource(cfg, *devMode)
	if err != nil {
		log.Fatalf("failed to open telemetry source: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, source, desc, os.Stdout, fsutil.OSFileSystem{}, *showRaw)
	stop()
	if cerr := source.Close(); cerr != nil {
		log.Printf("failed to close telemetry source: %v", cerr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("stopped: %v", err)
	}
}
