package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Motion    MotionConfig    `mapstructure:"motion"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// MotionConfig selects the GPIO backend and lists the motors cmd/motiond
// registers with the engine at startup.
type MotionConfig struct {
	GPIOBackend string      `mapstructure:"gpio_backend"` // "rpio", "gpiocdev", "mock"
	GPIOChip    string      `mapstructure:"gpio_chip"`    // gpiocdev only; empty = auto-detect
	Motors      []MotorPins `mapstructure:"motors"`
}

// MotorPins describes one motor's wiring and step resolution, as loaded
// from config.
type MotorPins struct {
	Name        string `mapstructure:"name"`
	Enable      int    `mapstructure:"enable_pin"`
	Dir         int    `mapstructure:"dir_pin"`
	Step        int    `mapstructure:"step_pin"`
	StepsPerRev uint32 `mapstructure:"steps_per_rev"`
}

// SchedulerConfig tunes the real-time scheduler thread (spec §4.5, §5).
type SchedulerConfig struct {
	RTPriority int   `mapstructure:"rt_priority"` // 0 disables elevation
	PinCore    int   `mapstructure:"pin_core"`    // -1 disables affinity pinning
	IdleSleep  int64 `mapstructure:"idle_sleep_ms"`
}

// DebugConfig controls the optional fiber debug HTTP surface
// (/healthz, /motors, /metrics), disabled by default.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// LoggerConfig contains logging settings
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	LogDir string `mapstructure:"log_dir"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults
	}

	// Override with environment variables
	v.SetEnvPrefix("MOTORD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Motion defaults
	v.SetDefault("motion.gpio_backend", "rpio")

	// Scheduler defaults (spec's original SCHED_FIFO priority 95, no pinning)
	v.SetDefault("scheduler.rt_priority", 95)
	v.SetDefault("scheduler.pin_core", -1)
	v.SetDefault("scheduler.idle_sleep_ms", 1)

	// Debug HTTP surface defaults (off by default)
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.listen", "127.0.0.1:9090")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".motord")
}
