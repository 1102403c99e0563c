package mysql

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gosqldriver "github.com/go-sql-driver/mysql"
)

// Config holds the connection settings of a MySQL store. DSN, if set,
// takes precedence over Host, Port, User, Password, Database and Params.
type Config struct {
	Host     string            `koanf:"host" yaml:"host"`
	Port     int               `koanf:"port" yaml:"port"`
	User     string            `koanf:"user" yaml:"user"`
	Password string            `koanf:"password" yaml:"password"`
	Database string            `koanf:"database" yaml:"database"`
	Prefix   string            `koanf:"prefix" yaml:"prefix"`
	Params   map[string]string `koanf:"params" yaml:"params"`
	DSN      string            `koanf:"dsn" yaml:"dsn"`

	MaxOpenConns    int           `koanf:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
}

// DefaultConfig returns the settings used for anything left unset.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            3306,
		User:            "root",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// driverConfig returns the driver configuration, parsed from DSN or built
// from the individual fields.
func (c Config) driverConfig() (*gosqldriver.Config, error) {
	if c.DSN != "" {
		dc, err := gosqldriver.ParseDSN(c.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid dsn: %w", err)
		}
		return dc, nil
	}
	if c.Database == "" {
		return nil, fmt.Errorf("no database configured")
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	dc := gosqldriver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = c.Host + ":" + strconv.Itoa(port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Timeout = c.ConnectTimeout
	if len(c.Params) == 0 {
		return dc, nil
	}

	// Params mixes driver options (charset, loc, ...) with system
	// variables; the driver's DSN parser tells them apart.
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dsn := dc.FormatDSN()
	sep := byte('?')
	if strings.Contains(dsn[strings.LastIndex(dsn, "/"):], "?") {
		sep = '&'
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, k := range keys {
		b.WriteByte(sep)
		b.WriteString(k + "=" + url.QueryEscape(c.Params[k]))
		sep = '&'
	}
	parsed, err := gosqldriver.ParseDSN(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return parsed, nil
}

// FormatDSN returns the data source name handed to the driver.
func (c Config) FormatDSN() (string, error) {
	dc, err := c.driverConfig()
	if err != nil {
		return "", err
	}
	return dc.FormatDSN(), nil
}

// StoreName returns the database the tables live in, taken from DSN if
// set.
func (c Config) StoreName() (string, error) {
	dc, err := c.driverConfig()
	if err != nil {
		return "", err
	}
	return dc.DBName, nil
}
