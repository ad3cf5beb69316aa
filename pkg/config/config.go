/*
Package config manages TOML config for the prediction engine.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/qazboard/sozdik/internal/utils"
)

// Config holds the entire config structure.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Spell    SpellConfig    `toml:"spell"`
	Cache    CacheConfig    `toml:"cache"`
	UserDict UserDictConfig `toml:"userdict"`
}

// EngineConfig tunes the predictor façade.
type EngineConfig struct {
	UnigramPath  string `toml:"unigram_path"`
	BigramPath   string `toml:"bigram_path"`
	UserDictPath string `toml:"userdict_path"`
	FastLimit    int    `toml:"fast_limit"`
	SmartLimit   int    `toml:"smart_limit"`
	ContextLimit int    `toml:"context_limit"`
	HeavyWaitMS  int    `toml:"heavy_wait_ms"`
}

// SpellConfig tunes the correction stages.
type SpellConfig struct {
	MaxInputLen     int `toml:"max_input_len"`
	FastDistanceMax int `toml:"fast_distance_max"`
	FullDistanceMax int `toml:"full_distance_max"`
	SpellLimit      int `toml:"spell_limit"`
}

// CacheConfig sizes the predictor's LRU caches and the negative-lookup
// set of each static trie.
type CacheConfig struct {
	PrefixSize   int `toml:"prefix_size"`
	SpellSize    int `toml:"spell_size"`
	ContextSize  int `toml:"context_size"`
	Utf32Size    int `toml:"utf32_size"`
	NegativeSize int `toml:"negative_size"`
}

// UserDictConfig tunes the learned-word store.
type UserDictConfig struct {
	DecayDays      int `toml:"decay_days"`
	SearchLimit    int `toml:"search_limit"`
	ContextLimit   int `toml:"context_limit"`
	SnapshotWaitMS int `toml:"snapshot_wait_ms"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			FastLimit:    10,
			SmartLimit:   15,
			ContextLimit: 15,
			HeavyWaitMS:  100,
		},
		Spell: SpellConfig{
			MaxInputLen:     10,
			FastDistanceMax: 2,
			FullDistanceMax: 3,
			SpellLimit:      10,
		},
		Cache: CacheConfig{
			PrefixSize:   500,
			SpellSize:    2000,
			ContextSize:  3000,
			Utf32Size:    5000,
			NegativeSize: 10000,
		},
		UserDict: UserDictConfig{
			DecayDays:      30,
			SearchLimit:    20,
			ContextLimit:   15,
			SnapshotWaitMS: 100,
		},
	}
}

// Sanitized returns a copy with every unset (zero or negative) tuning
// value filled from the defaults, so a partial TOML file or a
// zero-valued struct cannot produce a broken engine.
func (c *Config) Sanitized() *Config {
	out := *c
	def := DefaultConfig()

	fill := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}

	fill(&out.Engine.FastLimit, def.Engine.FastLimit)
	fill(&out.Engine.SmartLimit, def.Engine.SmartLimit)
	fill(&out.Engine.ContextLimit, def.Engine.ContextLimit)
	fill(&out.Engine.HeavyWaitMS, def.Engine.HeavyWaitMS)
	fill(&out.Spell.MaxInputLen, def.Spell.MaxInputLen)
	fill(&out.Spell.FastDistanceMax, def.Spell.FastDistanceMax)
	fill(&out.Spell.FullDistanceMax, def.Spell.FullDistanceMax)
	fill(&out.Spell.SpellLimit, def.Spell.SpellLimit)
	fill(&out.Cache.PrefixSize, def.Cache.PrefixSize)
	fill(&out.Cache.SpellSize, def.Cache.SpellSize)
	fill(&out.Cache.ContextSize, def.Cache.ContextSize)
	fill(&out.Cache.Utf32Size, def.Cache.Utf32Size)
	fill(&out.Cache.NegativeSize, def.Cache.NegativeSize)
	fill(&out.UserDict.DecayDays, def.UserDict.DecayDays)
	fill(&out.UserDict.SearchLimit, def.UserDict.SearchLimit)
	fill(&out.UserDict.ContextLimit, def.UserDict.ContextLimit)
	fill(&out.UserDict.SnapshotWaitMS, def.UserDict.SnapshotWaitMS)
	return &out
}

// GetConfigDir returns the config directory with fallback priority:
// ~/.config/sozdik, then the current working directory.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return os.Getwd()
	}
	primaryPath := filepath.Join(homeDir, ".config", "sozdik")
	if err := utils.EnsureDir(primaryPath); err == nil {
		return primaryPath, nil
	}
	return os.Getwd()
}

// GetDefaultConfigPath returns the default path for config.toml.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: ~/.config/sozdik/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing.
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file over the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves into a TOML file.
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
