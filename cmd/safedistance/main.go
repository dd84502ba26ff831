package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/safedistance/internal/app"
	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/config"
	"github.com/ayusman/safedistance/internal/detector"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/pipeline"
	"github.com/ayusman/safedistance/internal/server"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
	"github.com/ayusman/safedistance/internal/tray"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("SafeDistance - body distance monitor")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *noTray {
		cfg.Tray = false
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if n, err := st.Alerts().CloseActive(time.Now()); err != nil {
		monitoring.Logf("Failed to close stale alerts: %v", err)
	} else if n > 0 {
		monitoring.Logf("Closed %d alert(s) left open by a previous run", n)
	}

	initial, err := st.Settings().Load(cfg.InitialSettings())
	if err != nil {
		monitoring.Logf("Stored settings unusable (%v), using config defaults", err)
		initial = cfg.InitialSettings()
	}
	live := settings.NewLive(initial)
	live.OnChange(func(s settings.Settings) {
		monitoring.Logf("Settings updated: safe distance %g %s, show distance %t, visualize z %t, rescale z %t",
			s.SafeDistance.Value, s.SafeDistance.Unit, s.ShowDistance, s.VisualizeZ, s.RescaleZ)
	})

	opts := pipeline.DefaultOptions()
	opts.OverlayWidth = float64(cfg.Overlay.Width)
	opts.OverlayHeight = float64(cfg.Overlay.Height)
	opts.MinConfidence = cfg.Detector.MinConfidence

	detCfg := detector.DefaultConfig()
	detCfg.MaxPoses = cfg.Detector.MaxPoses
	detCfg.MinConfidence = cfg.Detector.MinConfidence
	detCfg.ScriptPath = cfg.Detector.Script

	application := app.New(app.Config{
		Store:     st,
		Settings:  live,
		PluginDir: cfg.PluginDir,
		CameraID:  cfg.Camera.Device,
		Rotation:  cfg.Camera.Rotation,
		Facing:    cfg.Facing(),
		FPS:       cfg.Camera.FPS,
		Pipeline:  opts,
		Detector:  detCfg,
		NewCamera: func(id int) capture.Camera {
			return capture.NewDevice(cfg.DeviceOptions(id))
		},
	})
	defer func() {
		if err := application.Close(); err != nil {
			monitoring.Logf("Shutdown error: %v", err)
		}
	}()

	if err := application.DiscoverPlugins(); err != nil {
		monitoring.Logf("Plugin discovery failed: %v", err)
	}
	for _, p := range application.PluginManager().List() {
		monitoring.Logf("Loaded plugin %s (%s) for %s", p.Manifest.Name, p.Manifest.Version, strings.Join(p.Manifest.Events, ", "))
	}

	application.SetEnabled(true)
	if err := application.Start(); err != nil {
		monitoring.Logf("Camera unavailable: %v", err)
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Settings:  live,
		Session:   application,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		return srv.Run(ctx, cfg.Server.Addr)
	})

	if cfg.Tray {
		runTray(ctx, stop, application, cfg.Server.Addr)
	} else {
		<-ctx.Done()
	}
	stop()

	if err := g.Wait(); err != nil {
		monitoring.Logf("Server failed: %v", err)
	}
}

// runTray blocks in the system tray until Quit is clicked or ctx ends.
// The tray must run on the main goroutine.
func runTray(ctx context.Context, stop context.CancelFunc, application *app.App, addr string) {
	t := tray.New(application.IsEnabled())
	application.AddSink(t)

	t.OnToggle(application.SetEnabled)
	t.OnSwitchCamera(func() {
		if next, err := application.ToggleFacing(); err != nil {
			monitoring.Logf("Camera switch failed: %v", err)
		} else {
			monitoring.Logf("Switched to %s camera", next)
		}
	})
	t.OnSettings(func() {
		openBrowser(settingsURL(addr))
	})
	t.OnQuit(stop)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		monitoring.Logf("Failed to open browser: %v", err)
	}
}

func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".safedistance", "config.yaml")
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
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

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
