package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigComplete(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Cache.PrefixSize != 500 || cfg.Cache.SpellSize != 2000 ||
		cfg.Cache.ContextSize != 3000 || cfg.Cache.Utf32Size != 5000 ||
		cfg.Cache.NegativeSize != 10000 {
		t.Errorf("cache defaults = %+v", cfg.Cache)
	}
	if cfg.Spell.MaxInputLen != 10 || cfg.Spell.FastDistanceMax != 2 || cfg.Spell.FullDistanceMax != 3 {
		t.Errorf("spell defaults = %+v", cfg.Spell)
	}
	if cfg.UserDict.DecayDays != 30 || cfg.UserDict.SnapshotWaitMS != 100 {
		t.Errorf("userdict defaults = %+v", cfg.UserDict)
	}
	if cfg.Engine.HeavyWaitMS != 100 {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
}

func TestSanitizedFillsZeros(t *testing.T) {
	var cfg Config
	cfg.Spell.MaxInputLen = 4 // explicit values survive

	got := cfg.Sanitized()
	if got.Spell.MaxInputLen != 4 {
		t.Errorf("explicit value overwritten: %d", got.Spell.MaxInputLen)
	}
	def := DefaultConfig()
	if got.Cache.PrefixSize != def.Cache.PrefixSize {
		t.Errorf("zero cache size not filled: %d", got.Cache.PrefixSize)
	}
	if got.UserDict.DecayDays != def.UserDict.DecayDays {
		t.Errorf("zero decay window not filled: %d", got.UserDict.DecayDays)
	}
	if got.Engine.HeavyWaitMS != def.Engine.HeavyWaitMS {
		t.Errorf("zero heavy wait not filled: %d", got.Engine.HeavyWaitMS)
	}
	// the receiver is untouched
	if cfg.Cache.PrefixSize != 0 {
		t.Error("Sanitized mutated its receiver")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Spell.MaxInputLen = 8
	cfg.Cache.PrefixSize = 64
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Spell.MaxInputLen != 8 || loaded.Cache.PrefixSize != 64 {
		t.Errorf("loaded = %+v / %+v", loaded.Spell, loaded.Cache)
	}
}
