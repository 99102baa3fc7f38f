package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver selects the persistence implementation: "gorm", "sql" or
	// "none" to run without a database.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// GameConfig holds the server-wide defaults and bounds for per-room
// settings. Hosts may tune a room within the bounds; anything outside
// is clamped.
type GameConfig struct {
	DefaultTickDurationMs int `mapstructure:"default_tick_duration_ms"`
	MinTickDurationMs     int `mapstructure:"min_tick_duration_ms"`
	MaxTickDurationMs     int `mapstructure:"max_tick_duration_ms"`
	DefaultSlotsPerSide   int `mapstructure:"default_slots_per_side"`
	MinSlotsPerSide       int `mapstructure:"min_slots_per_side"`
	MaxSlotsPerSide       int `mapstructure:"max_slots_per_side"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("database.driver", "none")
	viper.SetDefault("game.default_tick_duration_ms", 4000)
	viper.SetDefault("game.min_tick_duration_ms", 1000)
	viper.SetDefault("game.max_tick_duration_ms", 10000)
	viper.SetDefault("game.default_slots_per_side", 5)
	viper.SetDefault("game.min_slots_per_side", 2)
	viper.SetDefault("game.max_slots_per_side", 8)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
