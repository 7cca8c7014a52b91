package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr        string   `mapstructure:"addr"`
		CORSOrigins []string `mapstructure:"cors_origins"`
		JWTSecret   string   `mapstructure:"jwt_secret"`
	} `mapstructure:"server"`

	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Videos struct {
		Dir   string            `mapstructure:"dir"`
		Feeds map[string]string `mapstructure:"feeds"`
	} `mapstructure:"videos"`

	Detection Detection `mapstructure:"detection"`
}

// Detection holds the pipeline knobs. One Detection value is passed into the
// tracker/emitter constructors so independent feeds can run with independent
// thresholds.
type Detection struct {
	AlertThresholdSeconds float64 `mapstructure:"alert_threshold_seconds"`
	WarningRatio          float64 `mapstructure:"warning_ratio"`
	CoolDownSeconds       float64 `mapstructure:"cool_down_seconds"`
	PollIntervalSeconds   int     `mapstructure:"poll_interval_seconds"`
	SamplingIntervalMs    int     `mapstructure:"sampling_interval_ms"`
	SilenceTicks          int     `mapstructure:"silence_ticks"`
	StoreTimeoutSeconds   int     `mapstructure:"store_timeout_seconds"`
}

func (d Detection) AlertThreshold() time.Duration {
	return time.Duration(d.AlertThresholdSeconds * float64(time.Second))
}

func (d Detection) CoolDown() time.Duration {
	return time.Duration(d.CoolDownSeconds * float64(time.Second))
}

func (d Detection) SamplingInterval() time.Duration {
	return time.Duration(d.SamplingIntervalMs) * time.Millisecond
}

func (d Detection) SilenceWindow() time.Duration {
	return time.Duration(d.SilenceTicks) * d.SamplingInterval()
}

func (d Detection) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSeconds) * time.Second
}

func (d Detection) StoreTimeout() time.Duration {
	return time.Duration(d.StoreTimeoutSeconds) * time.Second
}

// Load reads config.yaml (path optional) with PARKWATCH_* env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8001")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("db.dsn", "")
	v.SetDefault("videos.dir", "videos")
	v.SetDefault("videos.feeds", map[string]string{})
	v.SetDefault("detection.alert_threshold_seconds", 5.0)
	v.SetDefault("detection.warning_ratio", 0.8)
	v.SetDefault("detection.cool_down_seconds", 0.0)
	v.SetDefault("detection.poll_interval_seconds", 30)
	v.SetDefault("detection.sampling_interval_ms", 200)
	v.SetDefault("detection.silence_ticks", 2)
	v.SetDefault("detection.store_timeout_seconds", 30)

	v.SetEnvPrefix("PARKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Cool-down defaults to the alert threshold: at most one alert per
	// violation episode unless the vehicle leaves and re-enters.
	if cfg.Detection.CoolDownSeconds <= 0 {
		cfg.Detection.CoolDownSeconds = cfg.Detection.AlertThresholdSeconds
	}
	if cfg.Detection.WarningRatio <= 0 || cfg.Detection.WarningRatio >= 1 {
		cfg.Detection.WarningRatio = 0.8
	}
	if cfg.Detection.SilenceTicks <= 0 {
		cfg.Detection.SilenceTicks = 2
	}

	return &cfg, nil
}
