package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/handseal/internal/app"
	"github.com/ayusman/handseal/internal/config"
	"github.com/ayusman/handseal/internal/logging"
	"github.com/ayusman/handseal/internal/seal"
	"github.com/ayusman/handseal/internal/server"
	"github.com/ayusman/handseal/internal/tray"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	def := config.Default()

	return &cli.App{
		Name:  "handseal",
		Usage: "extract palm-normalised hand seal ratios from live hand landmarks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   def.Addr,
				Usage:   "HTTP listen address",
				EnvVars: []string{"HANDSEAL_ADDR"},
			},
			&cli.IntFlag{
				Name:    "camera",
				Value:   def.CameraID,
				Usage:   "camera device id",
				EnvVars: []string{"HANDSEAL_CAMERA"},
			},
			&cli.IntFlag{
				Name:    "fps",
				Value:   def.FPS,
				Usage:   "frame ticks per second",
				EnvVars: []string{"HANDSEAL_FPS"},
			},
			&cli.StringFlag{
				Name:    "source",
				Value:   string(def.Source),
				Usage:   "landmark source: camera or browser",
				EnvVars: []string{"HANDSEAL_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "web-dir",
				Usage:   "directory of static viewer files (searched for when empty)",
				EnvVars: []string{"HANDSEAL_WEB_DIR"},
			},
			&cli.StringFlag{
				Name:    "normalization",
				Value:   def.Normalization.String(),
				Usage:   "palm normalization: own or reference",
				EnvVars: []string{"HANDSEAL_NORMALIZATION"},
			},
			&cli.IntFlag{
				Name:    "max-hands",
				Value:   def.Detector.MaxHands,
				Usage:   "maximum hands the detector reports",
				EnvVars: []string{"HANDSEAL_MAX_HANDS"},
			},
			&cli.Float64Flag{
				Name:    "min-confidence",
				Value:   def.Detector.MinConfidence,
				Usage:   "minimum hand detection confidence",
				EnvVars: []string{"HANDSEAL_MIN_CONFIDENCE"},
			},
			&cli.BoolFlag{
				Name:    "tray",
				Usage:   "show a system tray menu",
				EnvVars: []string{"HANDSEAL_TRAY"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				EnvVars: []string{"HANDSEAL_DEBUG"},
			},
		},
		Action: run,
	}
}

// configFromContext builds and validates a Config from parsed flags.
func configFromContext(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	cfg.Addr = c.String("addr")
	cfg.CameraID = c.Int("camera")
	cfg.FPS = c.Int("fps")
	cfg.WebDir = c.String("web-dir")
	cfg.Tray = c.Bool("tray")
	cfg.Debug = c.Bool("debug")
	cfg.Detector.MaxHands = c.Int("max-hands")
	cfg.Detector.MinConfidence = c.Float64("min-confidence")

	source, err := config.ParseSource(c.String("source"))
	if err != nil {
		return cfg, err
	}
	cfg.Source = source

	policy, err := seal.ParsePolicy(c.String("normalization"))
	if err != nil {
		return cfg, err
	}
	cfg.Normalization = policy

	if cfg.WebDir == "" {
		cfg.WebDir = findWebDir()
	}

	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.WebDir != "" {
		logger.Info("serving static files", zap.String("dir", cfg.WebDir))
	}

	a := app.New(cfg, logger)
	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	srv := server.New(server.Config{
		StaticDir:    cfg.WebDir,
		Camera:       a.Camera(),
		Latest:       a.Latest(),
		Extractor:    a.Extractor(),
		Logger:       logger,
		AcceptFrames: cfg.Source == config.SourceBrowser,
		Enabled:      a.IsEnabled,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		return srv.ListenAndServe(ctx, cfg.Addr)
	}

	t := tray.New()
	t.OnToggle(a.SetEnabled)
	a.OnFeatures(t.SetLastFeatures)
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(cfg.Addr)); err != nil {
			logger.Warn("open viewer", zap.Error(err))
		}
	})
	t.OnQuit(stop)

	return runWithTray(ctx, t, func(ctx context.Context) error {
		return srv.ListenAndServe(ctx, cfg.Addr)
	})
}

// trayUI is the part of the tray that runWithTray drives.
type trayUI interface {
	Run()
	Quit()
}

// runWithTray runs serve in the background while ui owns the calling
// goroutine. A serve failure or ctx cancellation closes the tray; closing the
// tray stops serve. It returns serve's error.
func runWithTray(ctx context.Context, ui trayUI, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx)
	}()

	done := make(chan error, 1)
	go func() {
		var err error
		select {
		case err = <-errCh:
		case <-ctx.Done():
			err = <-errCh
		}
		ui.Quit()
		done <- err
	}()

	ui.Run()
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// viewerURL turns a listen address into a local URL.
func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handseal/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handseal", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
