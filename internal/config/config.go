// Package config loads the settings of the dbscribe command from defaults,
// a YAML file, DBSCRIBE_ environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ezra-obiwale/DBScribe/mysql"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix     = "DBSCRIBE_"
	DefaultOutput = "table"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// databaseFlags are the flags stored under the database key.
var databaseFlags = map[string]bool{
	"host":     true,
	"port":     true,
	"user":     true,
	"password": true,
	"database": true,
	"prefix":   true,
	"dsn":      true,
}

type Config struct {
	Database mysql.Config `koanf:"database" yaml:"database"`
	Verbose  bool         `koanf:"verbose" yaml:"verbose"`
	Output   string       `koanf:"output" yaml:"output"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-" yaml:"-"`
}

// findConfigFile returns explicit if set, else dbscribe.yaml or dbscribe.yml
// in the working directory if present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"dbscribe.yaml", "dbscribe.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps DBSCRIBE_DATABASE_MAX_OPEN_CONNS to database.max_open_conns.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	key := strings.ReplaceAll(name, "-", "_")
	if databaseFlags[key] {
		return "database." + key
	}
	return key
}

// Load reads the configuration. Precedence (highest to lowest): flags that
// were set, environment variables, the config file, defaults.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	def := mysql.DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"database.host":               def.Host,
		"database.port":               def.Port,
		"database.user":               def.User,
		"database.max_open_conns":     def.MaxOpenConns,
		"database.max_idle_conns":     def.MaxIdleConns,
		"database.conn_max_lifetime":  def.ConnMaxLifetime,
		"database.conn_max_idle_time": def.ConnMaxIdleTime,
		"database.connect_timeout":    def.ConnectTimeout,
		"verbose":                     false,
		"output":                      DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the output format.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q: want %s, %s or %s",
		c.Output, OutputTable, OutputJSON, OutputYAML)
}
