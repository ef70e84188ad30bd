package config

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Log formatter options
const (
	json   = "json"
	logfmt = "logfmt"
	tty    = "tty"
)

// Config paths
const (
	PathLevel     = "loglevel"
	PathFormatter = "logformatter"
)

func (c *Config) bindLogFlags(flags *pflag.FlagSet) {
	flags.UintP(PathLevel, "l", uint(logrus.InfoLevel), "log level (Panic: 0, Fatal: 1, Error: 2, Warning: 3, Info: 4, Debug: 5, Trace: 6)")
	c.Bind(flags, PathLevel)

	flags.String(PathFormatter, tty, "log format (tty, logfmt or json)")
	c.Bind(flags, PathFormatter)
}

// NewLogger returns a logger writing to out as configured.
func (c *Config) NewLogger(out io.Writer) (*logrus.Logger, error) {
	lvl := c.Viper.GetUint32(PathLevel)
	if uint32(logrus.TraceLevel) < lvl {
		return nil, &InvalidConfigurationError{
			Identifier: PathLevel,
			Expected:   logrus.AllLevels,
			Actual:     lvl,
		}
	}
	formatter, err := c.LogFormatter()
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(formatter)
	l.SetLevel(logrus.Level(lvl))
	return l, nil
}

// LogFormatter returns the configured logrus formatter.
func (c *Config) LogFormatter() (logrus.Formatter, error) {
	switch c.Viper.GetString(PathFormatter) {
	case json:
		return &logrus.JSONFormatter{}, nil
	case logfmt:
		return &logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		}, nil
	case tty:
		return &logrus.TextFormatter{}, nil
	default:
		return nil, &InvalidConfigurationError{
			Identifier: PathFormatter,
			Expected:   [...]string{json, logfmt, tty},
			Actual:     c.Viper.GetString(PathFormatter),
		}
	}
}
