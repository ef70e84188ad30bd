// Package config collects the settings shared by all prodforecast tools from
// command-line flags, environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/openefs/prodforecast/internal/tensor"
)

// To be injected during build
var (
	Version = "development"

	GitCommit = "unknown"
)

const (
	// ApplicationName is used for configuration paths and environment
	// variables.
	ApplicationName = "prodforecast"

	// ConfigName is the configuration file's name without extension.
	ConfigName = ApplicationName
)

// ConfigPaths specifies where to look for configuration files.
var ConfigPaths = [...]string{".", "/etc/" + ApplicationName, "$HOME/." + ApplicationName}

// Config paths
const (
	PathConfig    = "config"
	PathTimesteps = "timesteps"
	PathFeatures  = "features"
	PathOutputs   = "outputs"
	PathLayout    = "layout"
	PathCSV       = "csv"
	PathCSVHeader = "csv-header"
)

// InvalidConfigurationError complains about a configuration value.
type InvalidConfigurationError struct {
	Identifier string
	Expected   interface{}
	Actual     interface{}
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: expected %v, got %v", e.Identifier, e.Expected, e.Actual)
}

// Config wraps the viper instance of one tool invocation.
type Config struct {
	Viper *viper.Viper
}

// New returns an empty configuration.
func New() *Config {
	return &Config{Viper: viper.New()}
}

// Bind makes the flag name readable through the configuration under the same key.
func (c *Config) Bind(flags *pflag.FlagSet, name string) {
	if err := c.Viper.BindPFlag(name, flags.Lookup(name)); err != nil {
		panic(err)
	}
}

// BindFlags registers the flags every tool accepts on flags.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringP(PathConfig, "c", ConfigName, "configuration file's name (without extension)")
	c.Bind(flags, PathConfig)

	flags.Int(PathTimesteps, tensor.DefaultShape.Timesteps, "number of timesteps per example")
	c.Bind(flags, PathTimesteps)

	flags.Int(PathFeatures, tensor.DefaultShape.Features, "number of features per timestep")
	c.Bind(flags, PathFeatures)

	flags.Int(PathOutputs, tensor.DefaultShape.Outputs, "number of values the model predicts per example")
	c.Bind(flags, PathOutputs)

	flags.String(PathLayout, tensor.TimestepMajor.String(), "order of input values (timestep or feature)")
	c.Bind(flags, PathLayout)

	flags.String(PathCSV, "", "read input values from this CSV file instead of the arguments")
	c.Bind(flags, PathCSV)

	flags.Bool(PathCSVHeader, false, "skip the CSV file's first line, a column named time holds RFC 3339 timestamps")
	c.Bind(flags, PathCSVHeader)

	c.bindLogFlags(flags)
}

// Load reads environment variables and the config file, if any. It returns
// the file used, or an empty string.
func (c *Config) Load() (string, error) {
	c.Viper.SetEnvPrefix(strings.ToUpper(ApplicationName))
	c.Viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.Viper.AutomaticEnv()

	c.Viper.SetConfigName(c.Viper.GetString(PathConfig))
	for _, p := range ConfigPaths {
		c.Viper.AddConfigPath(p)
	}

	if err := c.Viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("could not read config file: %w", err)
	}
	return c.Viper.ConfigFileUsed(), nil
}

// Shape returns the configured example shape.
func (c *Config) Shape() (tensor.Shape, error) {
	s := tensor.Shape{
		Timesteps: c.Viper.GetInt(PathTimesteps),
		Features:  c.Viper.GetInt(PathFeatures),
		Outputs:   c.Viper.GetInt(PathOutputs),
	}
	if err := s.Validate(); err != nil {
		return s, &InvalidConfigurationError{Identifier: "shape", Expected: "positive dimensions", Actual: s}
	}
	return s, nil
}

// Layout returns the configured value order.
func (c *Config) Layout() (tensor.Layout, error) {
	l, err := tensor.ParseLayout(c.Viper.GetString(PathLayout))
	if err != nil {
		return l, &InvalidConfigurationError{
			Identifier: PathLayout,
			Expected:   [...]string{tensor.TimestepMajor.String(), tensor.FeatureMajor.String()},
			Actual:     c.Viper.GetString(PathLayout),
		}
	}
	return l, nil
}

// Values returns the numeric input: the CSV file's cells when one is
// configured, otherwise args parsed as floats. Arguments are rejected when a
// CSV file is used.
func (c *Config) Values(args []string) ([]float64, error) {
	path := c.Viper.GetString(PathCSV)
	if path == "" {
		return tensor.ParseFloats(args)
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("got %d input values and a CSV file, expected one of them", len(args))
	}
	return tensor.LoadCSV(path, c.Viper.GetBool(PathCSVHeader))
}

// Fields describes the configuration for structured logs.
func (c *Config) Fields() logrus.Fields {
	return logrus.Fields{
		PathTimesteps: c.Viper.GetInt(PathTimesteps),
		PathFeatures:  c.Viper.GetInt(PathFeatures),
		PathOutputs:   c.Viper.GetInt(PathOutputs),
		PathLayout:    c.Viper.GetString(PathLayout),
	}
}
