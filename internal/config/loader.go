package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".repolens"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for repolens settings.
const envPrefix = "REPOLENS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load reads configuration from file, env vars, and defaults. A non-empty
// configPath names an explicit config file; otherwise the file is searched
// in CWD and $HOME. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("pipeline.notify_every", DefaultNotifyEvery)

	viperCfg.SetDefault("store.compression_threshold", DefaultCompressionThreshold)
	viperCfg.SetDefault("store.content_cache_size", DefaultContentCacheSize)

	viperCfg.SetDefault("ingest.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("ingest.max_archive_size", DefaultMaxArchiveSize)
	viperCfg.SetDefault("ingest.exclude_dirs", []string{"__pycache__", "venv", "env", ".git", "node_modules"})
	viperCfg.SetDefault("ingest.extensions", []string{".py"})

	viperCfg.SetDefault("view.page_size", DefaultPageSize)
}
