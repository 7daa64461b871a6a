// Package config loads the settings of the bkt command line.
//
// Settings come, by increasing priority, from the defaults, an optional
// buckets.yaml file and the BKT_* environment variables. Command flags are
// defaulted from the loaded values.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/buckets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. BKT_SEARCH_SEED.
const EnvPrefix = "BKT"

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Threshold float64         `mapstructure:"threshold"`
	Matrix    MatrixConfig    `mapstructure:"matrix"`
	Search    SearchConfig    `mapstructure:"search"`
	Merge     MergeConfig     `mapstructure:"merge"`
	Inclusion InclusionConfig `mapstructure:"inclusion"`
	Report    ReportConfig    `mapstructure:"report"`
}

type MatrixConfig struct {
	Format      string `mapstructure:"format"`       // "", "grid" or "pairs"
	PairColumn  int    `mapstructure:"pair_column"`  // zero based
	FillMissing bool   `mapstructure:"fill_missing"` // missing pairs read as fully correlated
}

type SearchConfig struct {
	Seed       int64 `mapstructure:"seed"`
	Buckets    int   `mapstructure:"buckets"`
	Iterations int   `mapstructure:"iterations"`
	Restarts   int   `mapstructure:"restarts"`
	Workers    int   `mapstructure:"workers"`
}

type MergeConfig struct {
	Sizes []int `mapstructure:"sizes"`
}

type InclusionConfig struct {
	Buckets int `mapstructure:"buckets"`
	Cap     int `mapstructure:"cap"`
}

type ReportConfig struct {
	Top int `mapstructure:"top"` // mergers listed per size on the terminal
}

// Load reads the configuration. An empty path looks for buckets.yaml in the
// current directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("buckets")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: cannot read %q: %v", buckets.ErrConfig, v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", buckets.ErrConfig, err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration without any file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("threshold", buckets.DefaultThreshold)

	v.SetDefault("matrix.format", "")
	v.SetDefault("matrix.pair_column", buckets.DefaultPairColumn)
	v.SetDefault("matrix.fill_missing", false)

	search := buckets.DefaultSearchOptions()
	v.SetDefault("search.seed", search.Seed)
	v.SetDefault("search.buckets", search.Buckets)
	v.SetDefault("search.iterations", search.Iterations)
	v.SetDefault("search.restarts", search.Restarts)
	v.SetDefault("search.workers", search.Workers)

	v.SetDefault("merge.sizes", []int{2, 3})

	inclusion := buckets.DefaultInclusionOptions()
	v.SetDefault("inclusion.buckets", inclusion.Buckets)
	v.SetDefault("inclusion.cap", inclusion.Cap)

	v.SetDefault("report.top", 3)
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", buckets.ErrConfig, err)
	}
	if _, err := buckets.ParseMatrixFormat(c.Matrix.Format); err != nil {
		return err
	}
	if c.Matrix.PairColumn < 2 {
		return fmt.Errorf("%w: matrix.pair_column must be at least 2, got %d", buckets.ErrConfig, c.Matrix.PairColumn)
	}
	if !(c.Threshold > 0 && c.Threshold <= buckets.MaxCorrelation) {
		return fmt.Errorf("%w: threshold must be in ]0,100], got %v", buckets.ErrConfig, c.Threshold)
	}
	if c.Search.Buckets < 1 || c.Inclusion.Buckets < 1 {
		return fmt.Errorf("%w: bucket counts must be positive", buckets.ErrConfig)
	}
	if c.Search.Iterations < 0 || c.Search.Restarts < 1 {
		return fmt.Errorf("%w: search needs non negative iterations and at least one restart", buckets.ErrConfig)
	}
	if c.Inclusion.Cap < 0 {
		return fmt.Errorf("%w: inclusion.cap must not be negative, got %d", buckets.ErrConfig, c.Inclusion.Cap)
	}
	for _, s := range c.Merge.Sizes {
		if s < 2 {
			return fmt.Errorf("%w: merge sizes must be at least 2, got %d", buckets.ErrConfig, s)
		}
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// PairList returns the options to read a pair list matrix.
func (c *Config) PairList() buckets.PairListOptions {
	return buckets.PairListOptions{Column: c.Matrix.PairColumn, FillMissing: c.Matrix.FillMissing}
}

// Analysis returns the options of a full analysis.
func (c *Config) Analysis() buckets.AnalysisOptions {
	return buckets.AnalysisOptions{
		Seed:             c.Search.Seed,
		Threshold:        c.Threshold,
		Iterations:       c.Search.Iterations,
		Restarts:         c.Search.Restarts,
		Workers:          c.Search.Workers,
		Buckets:          c.Search.Buckets,
		MergeSizes:       append([]int(nil), c.Merge.Sizes...),
		InclusionBuckets: c.Inclusion.Buckets,
		Cap:              c.Inclusion.Cap,
	}
}
