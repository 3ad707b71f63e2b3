package main

import (
	"errors"
	"flag"
	"log"
	"net/http"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/onelevel/chunk"
	"github.com/milk9111/onelevel/chunkmaps"
	"github.com/milk9111/onelevel/config"
	"github.com/milk9111/onelevel/engine"
	"github.com/milk9111/onelevel/loader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfgPath := flag.String("config", "onelevel.toml", "settings file")
	debug := flag.Bool("debug", false, "enable chunk editing and hot reload")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	levelName := flag.String("level", "", "level name in levels/ (basename, .json optional)")
	noTransitions := flag.Bool("no-transitions", false, "suppress every transition into a chunk map")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *levelName != "" {
		cfg.Viewer.StartLevel = *levelName
	}
	if *noTransitions {
		cfg.Chunks.DisableTransitions = true
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics := loader.NewMetrics(promReg)
	if cfg.Telemetry.MetricsAddr != "" {
		go serveMetrics(cfg.Telemetry.MetricsAddr, promReg, logger)
	}

	chunkmaps.Dir = cfg.Chunks.Dir
	registry := chunk.NewRegistry()
	specs, err := chunkmaps.LoadAll(registry, logger.Named("chunkmaps"))
	if err != nil {
		logger.Warn("some chunk maps failed to load", zap.Error(err))
	}

	eng := engine.New(engine.Options{Logger: logger.Named("engine")})
	if err := eng.Boot(cfg.Viewer.StartLevel); err != nil {
		logger.Fatal("boot failed", zap.Error(err))
	}

	patch := loader.New(eng, registry, loader.Options{
		Logger:             logger.Named("loader"),
		Metrics:            metrics,
		DisableTransitions: cfg.Chunks.DisableTransitions,
	})
	patch.Install()
	if err := patch.Start(); err != nil {
		logger.Error("chunk loader start failed", zap.Error(err))
	}

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle("onelevel")

	game := NewGame(cfg, eng, patch, specs, logger)
	if *debug {
		game.EnableDebug(cfg.Chunks.HotReload)
	}

	runErr := ebiten.RunGame(game)
	game.Close()
	_ = patch.Close()
	eng.Close()

	if err := config.Save(*cfgPath, cfg); err != nil {
		logger.Warn("save settings failed", zap.Error(err))
	}
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		logger.Fatal("game exited", zap.Error(runErr))
	}
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener stopped", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
