// Package config loads otctl's server configuration from a YAML file, with
// environment-variable overrides, via spf13/viper.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

// Config is the root configuration for the otctl server.
type Config struct {
	Running struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"running"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Auth struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"auth"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Load reads path (a YAML file) into a Config, allowing any field to be
// overridden by an OTCTL_-prefixed environment variable, e.g.
// OTCTL_MYSQL_DSN overrides mysql.dsn.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("otctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, xerrors.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, xerrors.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("running.addr", ":8080")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.topic", "ot-documents")
	v.SetDefault("logging.level", "info")
}
