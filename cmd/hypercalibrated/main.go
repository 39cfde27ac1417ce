package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/instance-id/hypercalibrate/internal/api"
	"github.com/instance-id/hypercalibrate/internal/cameractl"
	"github.com/instance-id/hypercalibrate/internal/capture"
	"github.com/instance-id/hypercalibrate/internal/colorcorrect"
	"github.com/instance-id/hypercalibrate/internal/config"
	"github.com/instance-id/hypercalibrate/internal/logging"
	"github.com/instance-id/hypercalibrate/internal/shared"
	"github.com/instance-id/hypercalibrate/internal/v4l2"
	"github.com/instance-id/hypercalibrate/internal/workerpool"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "hypercalibrated",
	Short: "hypercalibrate perspective-correction daemon",
	Long:  `hypercalibrated captures frames from a V4L2 device, applies a perspective-correction warp, and republishes corrected frames to a V4L2 loopback device.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon in the foreground",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hypercalibrated v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/hypercalibrate/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging sets up structured logging from config. Call after config.Load().
func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	logFileFallback := false

	if cfg.Color.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.Color.LogFile, cfg.Color.LogMaxSizeMB, cfg.Color.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.Color.LogFile, err)
			logFileFallback = true
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}

	logging.Init(cfg.Color.LogFormat, cfg.Color.LogLevel, output)
	log = logging.L("main")

	if logFileFallback {
		log.Warn("log file fallback active, logging to stdout only", "requestedFile", cfg.Color.LogFile)
	}
}

// logDiscoverableDevices probes /dev/video* nodes for informational
// logging only; the configured input_device is always attempted
// directly regardless of what this finds.
func logDiscoverableDevices() {
	for _, info := range v4l2.Enumerate() {
		if info.Opened {
			log.Debug("discoverable video device", "path", info.Path)
		}
	}
}

func runDaemon() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)
	log.Info("starting hypercalibrated", "version", version)
	logDiscoverableDevices()

	corrector := colorcorrect.New(cfg.Color.ToColorParams())
	pool := workerpool.New(runtime.NumCPU(), 64)

	state := shared.New(cfg.Calibration.ToCalibration(), cfg.Video.Width, cfg.Video.Height, cfg.Video.Width, cfg.Video.Height)

	pipeline, err := capture.Open(capture.Config{
		InputDevice:  cfg.Video.InputDevice,
		OutputDevice: cfg.Video.OutputDevice,
		Width:        cfg.Video.Width,
		Height:       cfg.Video.Height,
		FPS:          cfg.Video.FPS,
	}, state, corrector, pool, cfg.Color.PreviewJPEGQuality)
	if err != nil {
		log.Error("failed to open capture pipeline", "error", err)
		os.Exit(1)
	}

	srcW, srcH := pipeline.SourceSize()
	if srcW != cfg.Video.Width || srcH != cfg.Video.Height {
		log.Warn("negotiated capture resolution differs from configured resolution",
			"configured", fmt.Sprintf("%dx%d", cfg.Video.Width, cfg.Video.Height),
			"negotiated", fmt.Sprintf("%dx%d", srcW, srcH))
	}

	controls := cameractl.New(pipeline.Fd())
	if err := controls.Refresh(); err != nil {
		log.Warn("initial camera control enumeration failed", "error", err)
	} else if len(cfg.Camera.Controls) > 0 {
		if err := controls.Import(cfg.Camera.Controls); err != nil {
			log.Warn("applying persisted camera controls failed", "error", err)
		}
	}

	ctl := api.New(state, controls, pipeline, cfg, cfgFile)
	_ = ctl // exposed to an external HTTP layer, out of scope here

	runErr := make(chan error, 1)
	go func() {
		runErr <- pipeline.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runErr:
		log.Error("capture pipeline terminated", "error", err)
		pipeline.Close()
		os.Exit(1)
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	pipeline.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool.Shutdown(shutdownCtx)
	log.Info("hypercalibrated stopped")
}
