package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	CooldownSQLite = "sqlite"
	CooldownMemory = "memory"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabasePath  string `mapstructure:"DATABASE_PATH"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	CooldownDriver string        `mapstructure:"COOLDOWN_DRIVER"`
	CooldownPath   string        `mapstructure:"COOLDOWN_PATH"`
	CooldownWindow time.Duration `mapstructure:"COOLDOWN_WINDOW"`

	ScanFPS     int `mapstructure:"SCAN_FPS"`
	ScanBoxSize int `mapstructure:"SCAN_BOX_SIZE"`
	QRSize      int `mapstructure:"QR_SIZE"`

	CheckInTimezone   string `mapstructure:"CHECKIN_TIMEZONE"`
	CheckInDateLayout string `mapstructure:"CHECKIN_DATE_LAYOUT"`
	CheckInTimeLayout string `mapstructure:"CHECKIN_TIME_LAYOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment only")
	}

	v := viper.New()
	setDefaults(v)

	for _, key := range []string{
		"DATABASE_URL",
		"MONGO_URI",
		"JWT_SECRET",
		"DISCORD_CLIENT_ID",
		"DISCORD_CLIENT_SECRET",
		"DISCORD_GUILD_ID",
		"DISCORD_BOT_TOKEN",
		"DISCORD_NOTIFICATIONS_CHANNEL_ID",
	} {
		v.BindEnv(key)
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("DATABASE_PATH", "checkin.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGO_DATABASE", "checkin")
	v.SetDefault("COOLDOWN_DRIVER", CooldownSQLite)
	v.SetDefault("COOLDOWN_PATH", "scans.db")
	v.SetDefault("COOLDOWN_WINDOW", 6*time.Hour)
	v.SetDefault("SCAN_FPS", 10)
	v.SetDefault("SCAN_BOX_SIZE", 250)
	v.SetDefault("QR_SIZE", 256)
	v.SetDefault("CHECKIN_TIMEZONE", "Local")
	v.SetDefault("CHECKIN_DATE_LAYOUT", "1/2/2006")
	v.SetDefault("CHECKIN_TIME_LAYOUT", "3:04:05 PM")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreSQLite, StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres store")
	}

	switch c.CooldownDriver {
	case CooldownSQLite, CooldownMemory:
	default:
		return fmt.Errorf("unknown COOLDOWN_DRIVER %q", c.CooldownDriver)
	}

	if c.CooldownWindow <= 0 {
		return fmt.Errorf("COOLDOWN_WINDOW must be positive, got %s", c.CooldownWindow)
	}
	if c.ScanFPS <= 0 || c.ScanBoxSize <= 0 || c.QRSize <= 0 {
		return fmt.Errorf("SCAN_FPS, SCAN_BOX_SIZE and QR_SIZE must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves CHECKIN_TIMEZONE, used for the display date and time of a check-in.
func (c *Config) Location() (*time.Location, error) {
	if c.CheckInTimezone == "" || c.CheckInTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.CheckInTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKIN_TIMEZONE: %w", err)
	}
	return loc, nil
}
