package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Backend struct {
		BaseURL          string `mapstructure:"base_url"`
		PollIntervalMS   int    `mapstructure:"poll_interval_ms"`
		RequestTimeoutMS int    `mapstructure:"request_timeout_ms"`
	} `mapstructure:"backend"`
	Stub struct {
		Addr    string `mapstructure:"addr"`
		Archive struct {
			Enable   bool   `mapstructure:"enable"`
			Host     string `mapstructure:"host"`
			Port     int    `mapstructure:"port"`
			User     string `mapstructure:"user"`
			Password string `mapstructure:"password"`
			Name     string `mapstructure:"name"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"archive"`
	} `mapstructure:"stub"`
}

// LoadConfig loads the configuration from a file and the environment.
// A missing config file is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("backend.base_url", "http://localhost:8080")
	viper.SetDefault("backend.poll_interval_ms", 2000)
	viper.SetDefault("backend.request_timeout_ms", 10000)
	viper.SetDefault("stub.addr", ":8080")
	viper.SetDefault("stub.archive.enable", false)
	viper.SetDefault("stub.archive.host", "localhost")
	viper.SetDefault("stub.archive.port", 5432)
	viper.SetDefault("stub.archive.user", "postgres")
	viper.SetDefault("stub.archive.name", "outreach")
	viper.SetDefault("stub.archive.sslmode", "disable")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// normalize the endpoint (strip trailing slash if any)
	config.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(config.Backend.BaseURL), "/")

	return &config, nil
}
