// Command motiond is the example daemon: it loads configuration, wires a
// GPIO backend, starts the motion engine's scheduler thread, registers the
// motors named in config, and optionally exposes a read-only debug HTTP
// surface. Grounded on cmd/edgeflow/main.go's init-config/init-logger/
// init-HAL/start-engine/wait-for-signal shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ubuettemeier/a4988motion/internal/config"
	"github.com/ubuettemeier/a4988motion/internal/engine"
	"github.com/ubuettemeier/a4988motion/internal/hal"
	"github.com/ubuettemeier/a4988motion/internal/health"
	"github.com/ubuettemeier/a4988motion/internal/logger"
	"github.com/ubuettemeier/a4988motion/internal/metrics"
)

var Version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to ./configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logger.Level
	logCfg.Format = cfg.Logger.Format
	if cfg.Logger.LogDir != "" {
		logCfg.LogDir = cfg.Logger.LogDir
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("motiond starting", zap.String("version", Version), zap.String("board", config.DetectBoard()))

	gpio, closeGPIO, err := openGPIOBackend(cfg.Motion, log)
	if err != nil {
		log.Fatal("failed to open GPIO backend", zap.Error(err))
	}
	defer closeGPIO()

	eng := engine.New(gpio, engine.Config{
		RTPriority: cfg.Scheduler.RTPriority,
		PinCore:    cfg.Scheduler.PinCore,
		IdleSleep:  cfg.Scheduler.IdleSleep,
	}, log)

	if err := eng.Init(); err != nil {
		log.Fatal("failed to start scheduler thread", zap.Error(err))
	}
	defer eng.Shutdown()

	for _, mc := range cfg.Motion.Motors {
		m, err := eng.NewMotor(engine.Pins{Enable: mc.Enable, Dir: mc.Dir, Step: mc.Step}, mc.StepsPerRev)
		if err != nil {
			log.Error("failed to register motor from config", zap.String("name", mc.Name), zap.Error(err))
			continue
		}
		log.Info("registered motor", zap.String("name", mc.Name), zap.String("id", m.ID().String()))
	}

	checker := health.NewHealthChecker()
	checker.RegisterCheck("scheduling-policy", health.SchedulingPolicyHealthCheck(eng.SchedulingPolicy), 10*time.Second)
	log.Info("health checks registered")

	if cfg.Debug.Enabled {
		m := metrics.NewMetrics(eng)
		app := metrics.Router(m)
		go func() {
			log.Info("debug HTTP surface listening", zap.String("addr", cfg.Debug.Listen))
			if err := app.Listen(cfg.Debug.Listen); err != nil {
				log.Error("debug HTTP surface stopped", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))
}

// openGPIOBackend selects a hal.GPIOProvider per cfg.GPIOBackend and wraps
// it in engine.HALAdapter. The mock backend needs no hardware; it is used
// when gpio_backend is "mock" or empty (config.Load's default is "rpio").
func openGPIOBackend(cfg config.MotionConfig, log *zap.Logger) (engine.GPIO, func(), error) {
	switch cfg.GPIOBackend {
	case "rpio":
		board, err := hal.NewRaspberryPiHAL()
		if err != nil {
			return nil, nil, fmt.Errorf("rpio backend: %w", err)
		}
		return engine.NewHALAdapter(board.GPIO()), func() { board.Close() }, nil
	case "gpiocdev":
		chip := cfg.GPIOChip
		if chip == "" {
			if board, err := hal.DetectBoard(); err == nil {
				chip = board.GPIOChip
			}
		}
		provider, err := hal.NewGpiocdevGPIO(chip)
		if err != nil {
			return nil, nil, fmt.Errorf("gpiocdev backend: %w", err)
		}
		return engine.NewHALAdapter(provider), func() { provider.Close() }, nil
	case "mock", "":
		log.Warn("using mock GPIO backend, no hardware will be driven", zap.String("gpio_backend", cfg.GPIOBackend))
		mockHAL := hal.NewMockHAL()
		return engine.NewHALAdapter(mockHAL.GPIO()), func() { mockHAL.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown gpio_backend %q", cfg.GPIOBackend)
	}
}
