package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 6*time.Hour, cfg.CooldownWindow)
	assert.Equal(t, 10, cfg.ScanFPS)
	assert.Equal(t, 250, cfg.ScanBoxSize)
	assert.Equal(t, 256, cfg.QRSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("COOLDOWN_WINDOW", "30m")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("SCAN_FPS", "5")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Minute, cfg.CooldownWindow)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.ScanFPS)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreDriver:    StoreSQLite,
			CooldownDriver: CooldownMemory,
			CooldownWindow: time.Hour,
			ScanFPS:        10,
			ScanBoxSize:    250,
			QRSize:         256,
		}
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown store":     func(c *Config) { c.StoreDriver = "redis" },
		"postgres no dsn":   func(c *Config) { c.StoreDriver = StorePostgres },
		"unknown cooldown":  func(c *Config) { c.CooldownDriver = "disk" },
		"zero window":       func(c *Config) { c.CooldownWindow = 0 },
		"zero fps":          func(c *Config) { c.ScanFPS = 0 },
		"bad timezone":      func(c *Config) { c.CheckInTimezone = "Mars/Olympus" },
		"negative box size": func(c *Config) { c.ScanBoxSize = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
