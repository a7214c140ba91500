package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	appdefaults "github.com/audioroute/audioroute/config"
	"github.com/audioroute/audioroute/internal/logger"
)

// TapConfig fixes the output format of websocket tap streams.
type TapConfig struct {
	SampleRate      int `mapstructure:"sample_rate"`
	Channels        int `mapstructure:"channels"`
	FrameDurationMs int `mapstructure:"frame_duration_ms"`
	Bitrate         int `mapstructure:"bitrate"`
}

// Config holds the daemon configuration.
type Config struct {
	RootDir               string        `mapstructure:"-"`
	HTTPAddr              string        `mapstructure:"http_addr"`
	SourcesDir            string        `mapstructure:"sources_dir"`
	JournalDir            string        `mapstructure:"journal_dir"`
	DefaultResampleMethod string        `mapstructure:"default_resample_method"`
	MaxOutputsPerSource   int           `mapstructure:"max_outputs_per_source"`
	Tap                   TapConfig     `mapstructure:"tap"`
	Log                   logger.Config `mapstructure:"log"`
}

// Load reads the configuration: embedded defaults, then an optional
// audioroute.yaml found near the working directory, then AUDIOROUTE_*
// environment variables.
func Load() (Config, error) {
	rootDir, err := resolveRootDir()
	if err != nil {
		return Config{}, err
	}

	v := newViper()
	v.SetConfigName("audioroute")
	v.AddConfigPath(rootDir)

	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return finish(v, rootDir)
}

// LoadFile reads the configuration from an explicit file on top of the
// embedded defaults. An empty path falls back to Load.
func LoadFile(configPath string) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		return Load()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, err
	}

	v := newViper()
	v.SetConfigFile(absPath)
	if err := v.MergeInConfig(); err != nil {
		return Config{}, err
	}

	return finish(v, filepath.Dir(absPath))
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(appdefaults.Default)); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}

	v.SetEnvPrefix("audioroute")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func finish(v *viper.Viper, rootDir string) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	cfg.RootDir = rootDir
	if cfg.SourcesDir != "" && !filepath.IsAbs(cfg.SourcesDir) {
		cfg.SourcesDir = filepath.Join(rootDir, cfg.SourcesDir)
	}
	if cfg.JournalDir != "" && !filepath.IsAbs(cfg.JournalDir) {
		cfg.JournalDir = filepath.Join(rootDir, cfg.JournalDir)
	}

	return cfg, nil
}

func resolveRootDir() (string, error) {
	if root := strings.TrimSpace(os.Getenv("AUDIOROUTE_ROOT_DIR")); root != "" {
		return filepath.Abs(root)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for i := 0; i < 6; i++ {
		if fileExists(filepath.Join(dir, "audioroute.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return wd, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
