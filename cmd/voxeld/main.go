package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-theft-craft/voxelcore/internal/camera"
	"github.com/go-theft-craft/voxelcore/internal/config"
	"github.com/go-theft-craft/voxelcore/internal/metrics"
	"github.com/go-theft-craft/voxelcore/internal/render"
	"github.com/go-theft-craft/voxelcore/internal/world"
	"github.com/go-theft-craft/voxelcore/internal/world/block"
	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
)

const frameInterval = time.Second / 60

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "YAML or TOML config file")
	dumpPath := flag.String("dump-config", "", "write the effective config to this file and exit")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world seed")
	flag.IntVar(&cfg.RenderDistance, "render-distance", cfg.RenderDistance, "render distance in columns")
	flag.IntVar(&cfg.RenderMargin, "render-margin", cfg.RenderMargin, "columns generated beyond render distance")
	flag.IntVar(&cfg.MaxRenderDistance, "max-render-distance", cfg.MaxRenderDistance, "upper bound for the render distance")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "meshing workers (0 = one per spare CPU)")
	flag.IntVar(&cfg.FillCap, "fill-cap", cfg.FillCap, "largest region a fill may cover")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics on this address")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to run")
	flag.Float64Var(&cfg.WalkSpeed, "walk-speed", cfg.WalkSpeed, "blocks walked along +X per frame")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *configPath != "" {
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		fromFile, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		config.Merge(cfg, fromFile, explicit)
		log.Info("loaded config from file", "path", *configPath)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if *dumpPath != "" {
		if err := config.Save(*dumpPath, cfg); err != nil {
			log.Error("save config", "path", *dumpPath, "error", err)
			os.Exit(1)
		}
		return
	}

	level, _ := cfg.Level()
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	pipeline := metrics.NewPipeline(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, log, cfg.MetricsAddr, reg)
	}

	w, err := world.New(world.Env{Log: log, Metrics: pipeline}, world.Options{
		Seed:        cfg.Seed,
		Settings:    cfg.Terrain,
		Distance:    cfg.RenderDistance,
		MaxDistance: cfg.MaxRenderDistance,
		Margin:      cfg.RenderMargin,
		Workers:     cfg.Workers,
		FillCap:     cfg.FillCap,
	})
	if err != nil {
		log.Error("create world", "error", err)
		os.Exit(1)
	}
	w.Start(ctx)
	defer w.Close()

	run(ctx, log, cfg, w)
}

func serveMetrics(ctx context.Context, log *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", "error", err)
	}
}

// run plays the render thread: it walks a player along +X, drives streaming,
// uploads meshes and builds a draw batch every frame.
func run(ctx context.Context, log *slog.Logger, cfg *config.Config, w *world.World) {
	buf := render.NewPackedBuffer()
	builder := render.NewBuilder(log.With("component", "render"))
	far := float32((cfg.RenderDistance + 1) * chunk.Size)

	x := 0.0
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for frame := 0; frame < cfg.Frames; frame++ {
		select {
		case <-ctx.Done():
			log.Info("interrupted", "frame", frame)
			return
		case <-ticker.C:
		}

		bx, bz := int(x), 0
		y := max(w.HighestSolidYAt(bx, bz), 0) + 2
		player := chunk.Pos{X: bx, Y: y, Z: bz}

		step := w.Update(player)
		if step.Finished != nil {
			log.Debug("cycle integrated", "frame", frame, "adopted", len(step.Finished.Adopted))
		}
		uploaded := w.DrainUploads(buf)

		cam := camera.New(mgl32.Vec3{float32(x), float32(y) + 1.6, 0.5}, 16.0/9.0, far)
		batch := builder.Build(w, cam.Frustum(), player.Chunk())

		// Mark the walk with a glass pillar every few seconds.
		if frame > 0 && frame%240 == 0 {
			top := player.Add(0, 4, 0)
			if n, err := w.FillBlocks(player.Add(0, 1, 2), top.Add(0, 0, 2), block.Glass); err != nil {
				log.Warn("fill pillar", "count", n, "error", err)
			}
		}

		if frame%60 == 0 {
			log.Info("frame",
				"frame", frame,
				"player", player,
				"draws", len(batch.Commands),
				"faces", batch.Faces(),
				"visible_chunks", batch.Visible,
				"culled_chunks", batch.Culled,
				"uploaded_chunks", uploaded,
				"buffer_len", buf.Len(),
			)
		}
		x += cfg.WalkSpeed
	}
	log.Info("walk finished", "frames", cfg.Frames, "distance", x)
}
