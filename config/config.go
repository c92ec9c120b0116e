// Package config holds the settings of the solver, the interpolation engine
// and the clause sharing workers, as read from a YAML file.
package config

import (
	"math/big"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/crillab/gophersmt/interpolation"
)

const (
	// MaxSharedClauseSize is the default size above which shared clauses are
	// dropped.
	MaxSharedClauseSize = 50
	// DefaultRedisAddr is the default address of the Redis server.
	DefaultRedisAddr = "127.0.0.1:6379"
	// DefaultDialTimeout is the default time allowed to reach Redis.
	DefaultDialTimeout = 1500 * time.Millisecond
)

type File struct {
	Solver Config `yaml:"gophersmt"`
}

type Config struct {
	Interpolation Interpolation `yaml:"interpolation"`
	Share         Share         `yaml:"share"`
	MetricsAddr   string        `yaml:"metricsAddr"`
	Debug         bool          `yaml:"debug"`
}

type Interpolation struct {
	// Produce selects the theory handler able to build interpolants.
	Produce   bool   `yaml:"produce"`
	Algorithm string `yaml:"algorithm"`
	// Alpha is the strength of flexible interpolants, a rational such as
	// "1/2".
	Alpha string `yaml:"alpha"`
}

type Share struct {
	Addr          string        `yaml:"addr"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	Channel       string        `yaml:"channel"`
	Workers       int           `yaml:"workers"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	MaxClauseSize int           `yaml:"maxClauseSize"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Interpolation.Algorithm == "" {
		c.Interpolation.Algorithm = interpolation.Canonical.String()
	}
	if c.Interpolation.Alpha == "" {
		c.Interpolation.Alpha = "1/2"
	}
	if c.Share.Addr == "" {
		c.Share.Addr = DefaultRedisAddr
	}
	if c.Share.Channel == "" {
		c.Share.Channel = "solver"
	}
	if c.Share.Workers <= 0 {
		c.Share.Workers = 1
	}
	if c.Share.DialTimeout <= 0 {
		c.Share.DialTimeout = DefaultDialTimeout
	}
	if c.Share.MaxClauseSize <= 0 {
		c.Share.MaxClauseSize = MaxSharedClauseSize
	}
}

// Parse reads a configuration from YAML content, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	c := &f.Solver
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfig reads the configuration file at cfgPath. Environment variables
// in the path are expanded.
func LoadConfig(cfgPath string) (*Config, error) {
	data, err := os.ReadFile(os.ExpandEnv(cfgPath))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read configuration")
	}
	return Parse(data)
}

// Validate checks the values of c.
func (c *Config) Validate() error {
	if _, err := c.Interpolation.ParsedAlgorithm(); err != nil {
		return err
	}
	if _, err := c.Interpolation.ParsedAlpha(); err != nil {
		return err
	}
	if c.Share.Channel == "" {
		return errors.New("share channel must not be empty")
	}
	return nil
}

// ParsedAlgorithm returns the interpolation algorithm to use.
func (i Interpolation) ParsedAlgorithm() (interpolation.Algorithm, error) {
	return interpolation.ParseAlgorithm(i.Algorithm)
}

// ParsedAlpha returns the strength of flexible interpolants.
func (i Interpolation) ParsedAlpha() (*big.Rat, error) {
	alpha, ok := new(big.Rat).SetString(i.Alpha)
	if !ok {
		return nil, errors.Errorf("invalid interpolation strength %q", i.Alpha)
	}
	if alpha.Sign() < 0 || alpha.Cmp(big.NewRat(1, 1)) > 0 {
		return nil, errors.Errorf("interpolation strength %s is not in [0,1]", i.Alpha)
	}
	return alpha, nil
}
