package mysql

import (
	"testing"
	"time"

	gosqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFormatDSN(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantAddr  string
		wantUser  string
		wantStore string
		wantParam map[string]string
		wantDSN   string
		errMsg    string
	}{
		{
			name: "fields",
			config: Config{
				Host:     "db.internal",
				Port:     3307,
				User:     "app",
				Password: "secret",
				Database: "shop",
				Params:   map[string]string{"charset": "utf8mb4", "autocommit": "1"},
			},
			wantAddr:  "db.internal:3307",
			wantUser:  "app",
			wantStore: "shop",
			wantParam: map[string]string{"autocommit": "1"},
			wantDSN:   "charset=utf8mb4",
		},
		{
			name:      "default port",
			config:    Config{Host: "localhost", User: "root", Database: "shop"},
			wantAddr:  "localhost:3306",
			wantUser:  "root",
			wantStore: "shop",
		},
		{
			name:      "dsn wins",
			config:    Config{DSN: "reader:pw@tcp(replica:3306)/reports", Host: "ignored", Database: "ignored"},
			wantAddr:  "replica:3306",
			wantUser:  "reader",
			wantStore: "reports",
		},
		{
			name:   "no database",
			config: Config{Host: "localhost"},
			errMsg: "no database configured",
		},
		{
			name:   "invalid dsn",
			config: Config{DSN: "not a dsn"},
			errMsg: "invalid dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := tt.config.FormatDSN()
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)

			parsed, err := gosqldriver.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, parsed.Addr)
			assert.Equal(t, tt.wantUser, parsed.User)
			assert.Equal(t, tt.wantStore, parsed.DBName)
			for k, v := range tt.wantParam {
				assert.Equal(t, v, parsed.Params[k])
			}
			assert.Contains(t, dsn, tt.wantDSN)
			_, sent := parsed.Params["charset"]
			assert.False(t, sent, "charset must not be sent as a system variable")

			store, err := tt.config.StoreName()
			require.NoError(t, err)
			assert.Equal(t, tt.wantStore, store)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)

	cfg.Database = "shop"
	dc, err := cfg.driverConfig()
	require.NoError(t, err)
	assert.True(t, dc.ParseTime)
	assert.Equal(t, "tcp", dc.Net)
	assert.Equal(t, 5*time.Second, dc.Timeout)
}

func TestConfigParams(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		Database: "shop",
		Params:   map[string]string{"charset": "utf8mb4", "time_zone": "'+00:00'"},
	}
	dc, err := cfg.driverConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"time_zone": "'+00:00'"}, dc.Params)
	assert.Equal(t, "shop", dc.DBName)
	assert.True(t, dc.ParseTime)
}
