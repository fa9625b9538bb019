// Package config loads Themis's configuration surface: KV store tuning,
// fulltext tokenizer toggles, and vector prefilter knobs. YAML is the file
// format, with env-var overrides layered on top via viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix makes every override "THEMIS_<SECTION>_<KEY>", e.g.
// THEMIS_KV_BLOCK_CACHE_SIZE_MB.
const envPrefix = "THEMIS"

// KVConfig is the badger-backed KV store's tuning surface.
type KVConfig struct {
	DBPath                           string   `yaml:"db_path" mapstructure:"db_path"`
	WALDir                           string   `yaml:"wal_dir" mapstructure:"wal_dir"`
	DBPaths                          []string `yaml:"db_paths" mapstructure:"db_paths"`
	MemtableSizeMB                   int      `yaml:"memtable_size_mb" mapstructure:"memtable_size_mb"`
	BlockCacheSizeMB                 int      `yaml:"block_cache_size_mb" mapstructure:"block_cache_size_mb"`
	BloomBitsPerKey                  int      `yaml:"bloom_bits_per_key" mapstructure:"bloom_bits_per_key"`
	EnableWAL                        bool     `yaml:"enable_wal" mapstructure:"enable_wal"`
	MaxBackgroundJobs                int      `yaml:"max_background_jobs" mapstructure:"max_background_jobs"`
	CompressionDefault               string   `yaml:"compression_default" mapstructure:"compression_default"`
	CompressionBottommost            string   `yaml:"compression_bottommost" mapstructure:"compression_bottommost"`
	UseDirectReads                   bool     `yaml:"use_direct_reads" mapstructure:"use_direct_reads"`
	UseDirectIOForFlushAndCompaction bool     `yaml:"use_direct_io_for_flush_and_compaction" mapstructure:"use_direct_io_for_flush_and_compaction"`
	DynamicLevelBytes                bool     `yaml:"dynamic_level_bytes" mapstructure:"dynamic_level_bytes"`
	TargetFileSizeBaseMB             int      `yaml:"target_file_size_base_mb" mapstructure:"target_file_size_base_mb"`
	MaxBytesForLevelBaseMB           int      `yaml:"max_bytes_for_level_base_mb" mapstructure:"max_bytes_for_level_base_mb"`
}

// FulltextConfig holds the fulltext tokenizer toggles of the configuration
// surface. The index package does not read them: each fulltext index takes
// its stages from index.FulltextConfig in its own index.Params.
type FulltextConfig struct {
	Language         string `yaml:"language" mapstructure:"language"`
	StemmingEnabled  bool   `yaml:"stemming_enabled" mapstructure:"stemming_enabled"`
	StopwordsEnabled bool   `yaml:"stopwords_enabled" mapstructure:"stopwords_enabled"`
	NormalizeUmlauts bool   `yaml:"normalize_umlauts" mapstructure:"normalize_umlauts"`
}

// VectorPrefilterConfig uses the same key names as
// internal/vector.PrefilterConfig's JSON keys. The vector package does not
// read these values: each vector object's prefilter settings come from its
// own vector.ObjectConfig.
type VectorPrefilterConfig struct {
	WhitelistPrefilterEnabled bool    `yaml:"whitelist_prefilter_enabled" mapstructure:"whitelist_prefilter_enabled"`
	WhitelistInitialFactor    int     `yaml:"whitelist_initial_factor" mapstructure:"whitelist_initial_factor"`
	WhitelistMinCandidates    int     `yaml:"whitelist_min_candidates" mapstructure:"whitelist_min_candidates"`
	WhitelistMaxAttempts      int     `yaml:"whitelist_max_attempts" mapstructure:"whitelist_max_attempts"`
	WhitelistGrowthFactor     float64 `yaml:"whitelist_growth_factor" mapstructure:"whitelist_growth_factor"`
}

// Config is the full top-level configuration surface.
type Config struct {
	KV              KVConfig              `yaml:"kv" mapstructure:"kv"`
	Fulltext        FulltextConfig        `yaml:"fulltext" mapstructure:"fulltext"`
	VectorPrefilter VectorPrefilterConfig `yaml:"vector_prefilter" mapstructure:"vector_prefilter"`
}

// Default returns a reasonable starting configuration: badger defaults,
// stemming/stopwords on, prefiltering on.
func Default() Config {
	return Config{
		KV: KVConfig{
			DBPath:                 "./data",
			MemtableSizeMB:         64,
			BlockCacheSizeMB:       256,
			BloomBitsPerKey:        10,
			EnableWAL:              true,
			MaxBackgroundJobs:      4,
			CompressionDefault:     "zstd",
			CompressionBottommost:  "zstd",
			DynamicLevelBytes:      true,
			TargetFileSizeBaseMB:   64,
			MaxBytesForLevelBaseMB: 256,
		},
		Fulltext: FulltextConfig{
			Language:         "en",
			StemmingEnabled:  true,
			StopwordsEnabled: true,
			NormalizeUmlauts: true,
		},
		VectorPrefilter: VectorPrefilterConfig{
			WhitelistPrefilterEnabled: true,
			WhitelistInitialFactor:    4,
			WhitelistMinCandidates:    1,
			WhitelistMaxAttempts:      3,
			WhitelistGrowthFactor:     2.0,
		},
	}
}

// Load reads configPath (YAML) into a viper instance seeded with Default,
// applies THEMIS_*-prefixed environment overrides, and unmarshals into a
// Config. A missing configPath is not an error — defaults (plus any env
// overrides) apply.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config.Load: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every field of def with viper under its
// mapstructure key path, so AutomaticEnv and ReadInConfig only need to
// override what's actually set.
func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("kv.db_path", def.KV.DBPath)
	v.SetDefault("kv.wal_dir", def.KV.WALDir)
	v.SetDefault("kv.db_paths", def.KV.DBPaths)
	v.SetDefault("kv.memtable_size_mb", def.KV.MemtableSizeMB)
	v.SetDefault("kv.block_cache_size_mb", def.KV.BlockCacheSizeMB)
	v.SetDefault("kv.bloom_bits_per_key", def.KV.BloomBitsPerKey)
	v.SetDefault("kv.enable_wal", def.KV.EnableWAL)
	v.SetDefault("kv.max_background_jobs", def.KV.MaxBackgroundJobs)
	v.SetDefault("kv.compression_default", def.KV.CompressionDefault)
	v.SetDefault("kv.compression_bottommost", def.KV.CompressionBottommost)
	v.SetDefault("kv.use_direct_reads", def.KV.UseDirectReads)
	v.SetDefault("kv.use_direct_io_for_flush_and_compaction", def.KV.UseDirectIOForFlushAndCompaction)
	v.SetDefault("kv.dynamic_level_bytes", def.KV.DynamicLevelBytes)
	v.SetDefault("kv.target_file_size_base_mb", def.KV.TargetFileSizeBaseMB)
	v.SetDefault("kv.max_bytes_for_level_base_mb", def.KV.MaxBytesForLevelBaseMB)

	v.SetDefault("fulltext.language", def.Fulltext.Language)
	v.SetDefault("fulltext.stemming_enabled", def.Fulltext.StemmingEnabled)
	v.SetDefault("fulltext.stopwords_enabled", def.Fulltext.StopwordsEnabled)
	v.SetDefault("fulltext.normalize_umlauts", def.Fulltext.NormalizeUmlauts)

	v.SetDefault("vector_prefilter.whitelist_prefilter_enabled", def.VectorPrefilter.WhitelistPrefilterEnabled)
	v.SetDefault("vector_prefilter.whitelist_initial_factor", def.VectorPrefilter.WhitelistInitialFactor)
	v.SetDefault("vector_prefilter.whitelist_min_candidates", def.VectorPrefilter.WhitelistMinCandidates)
	v.SetDefault("vector_prefilter.whitelist_max_attempts", def.VectorPrefilter.WhitelistMaxAttempts)
	v.SetDefault("vector_prefilter.whitelist_growth_factor", def.VectorPrefilter.WhitelistGrowthFactor)
}
