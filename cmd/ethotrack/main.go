// Command ethotrack runs one monitoring session: frames in from a camera
// source, per-ROI tracking with sleep-deprivation feedback, results out to
// SQLite, and a supervisory HTTP API.
package main

import (
	"context"
	"flag"
	"image"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/arenalab/ethotrack/internal/api"
	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/camera"
	"github.com/arenalab/ethotrack/internal/config"
	"github.com/arenalab/ethotrack/internal/drawer"
	"github.com/arenalab/ethotrack/internal/hardware"
	"github.com/arenalab/ethotrack/internal/monitor"
	"github.com/arenalab/ethotrack/internal/security"
	"github.com/arenalab/ethotrack/internal/stimulus"
	"github.com/arenalab/ethotrack/internal/storage"
	"github.com/arenalab/ethotrack/internal/track"
	"github.com/arenalab/ethotrack/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run with a synthetic camera and mock hardware")
	listen     = flag.String("listen", ":8090", "API listen address")
	configPath = flag.String("config", "config/session.json", "Session config file")
	framesDir  = flag.String("frames", "", "Play back frames from a directory instead of live capture")
	snapshot   = flag.String("snapshot", "", "Write an annotated PNG snapshot to this path")
	noDeprive  = flag.Bool("no-deprive", false, "Track only, without deprivation feedback")
)

// devFrameCount is how many synthetic frames a -dev run produces.
const devFrameCount = 600

func main() {
	flag.Parse()
	log.Printf("ethotrack %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	rois := cfg.ArenaROIs()

	if *snapshot != "" {
		if err := security.ValidateOutputPath(*snapshot); err != nil {
			log.Fatalf("invalid snapshot path: %v", err)
		}
	}
	if err := security.ValidateOutputPath(cfg.GetDBPath()); err != nil {
		log.Fatalf("invalid db path: %v", err)
	}

	var cam camera.Camera
	switch {
	case *devMode:
		cam = camera.NewSyntheticCamera(devFrames(rois, cfg.GetFPS()))
	case *framesDir != "":
		cam, err = camera.NewDirCamera(*framesDir, cfg.GetFPS())
		if err != nil {
			log.Fatalf("failed to open frame directory: %v", err)
		}
	default:
		log.Fatal("live capture requires -frames or -dev for now")
	}
	defer cam.Close()

	var dep hardware.Depriver
	if *devMode {
		dep = hardware.NewMockDepriver()
	} else {
		sd := hardware.NewSerialDepriver(cfg.GetSerialPath(), cfg.GetSerialBaud())
		defer sd.Close()
		dep = sd
	}

	var interactors []stimulus.Interactor
	if !*noDeprive {
		interactors = make([]stimulus.Interactor, len(rois))
		for i := range rois {
			interactors[i] = stimulus.NewSleepDepInteractor(
				i, dep, cfg.GetDistanceThreshold(), cfg.GetInactivityTime())
		}
	}

	factory := track.NewBGSubFactory(track.BGSubConfig{
		LearningRate: cfg.GetTrackerLearningRate(),
		Quantile:     cfg.GetTrackerQuantile(),
	})

	mon, err := monitor.New(cam, rois, factory, interactors)
	if err != nil {
		log.Fatalf("failed to create monitor: %v", err)
	}

	store, err := storage.Open(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open result database: %v", err)
	}
	defer store.Close()
	runID, err := store.StartRun(rois)
	if err != nil {
		log.Fatalf("failed to start run: %v", err)
	}
	log.Printf("run %s: %d rois", runID, len(rois))

	var d monitor.Drawer
	if *snapshot != "" {
		d = drawer.NewSnapshotDrawer(*snapshot, 10)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// monitoring loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Run(ctx, store, d); err != nil {
			log.Printf("monitor run failed: %v", err)
		}
		if err := store.FinishRun(); err != nil {
			log.Printf("failed to finish run: %v", err)
		}
		// the run is over either way; bring the process down
		stop()
	}()

	// supervisory HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := api.NewServer(mon, store).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	// translate the signal context into a cooperative stop so the in-flight
	// frame completes before the run ends
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		mon.Stop()
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}

// devFrames synthesises a session's worth of frames with one wandering blob
// per ROI, enough to exercise tracking and feedback without hardware.
func devFrames(rois []arena.ROI, fps float64) []arena.Frame {
	stepMs := int64(1000.0 / fps)
	bounds := image.Rect(0, 0, 640, 480)
	for _, r := range rois {
		bounds = bounds.Union(r.Rect)
	}

	rng := rand.New(rand.NewSource(1))
	type blob struct{ x, y float64 }
	blobs := make([]blob, len(rois))
	for i, r := range rois {
		blobs[i] = blob{
			x: float64(r.Rect.Min.X+r.Rect.Max.X) / 2,
			y: float64(r.Rect.Min.Y+r.Rect.Max.Y) / 2,
		}
	}

	frames := make([]arena.Frame, 0, devFrameCount)
	for n := 0; n < devFrameCount; n++ {
		img := image.NewGray(bounds)
		for i, r := range rois {
			// random walk clamped to the ROI interior
			blobs[i].x += rng.Float64()*4 - 2
			blobs[i].y += rng.Float64()*4 - 2
			blobs[i].x = clamp(blobs[i].x, float64(r.Rect.Min.X+3), float64(r.Rect.Max.X-4))
			blobs[i].y = clamp(blobs[i].y, float64(r.Rect.Min.Y+3), float64(r.Rect.Max.Y-4))
			fillBlob(img, int(blobs[i].x), int(blobs[i].y))
		}
		frames = append(frames, arena.Frame{TimeMs: int64(n) * stepMs, Image: img})
	}
	return frames
}

func fillBlob(img *image.Gray, cx, cy int) {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			p := image.Point{cx + dx, cy + dy}
			if p.In(img.Bounds()) {
				img.Pix[img.PixOffset(p.X, p.Y)] = 255
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
