package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Security
}

// New reads configuration from AUTHCLIENT_* environment variables, an optional
// .env file and an optional config.{yaml,json,toml} in the working directory.
func New() Config {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	return newMainConfig(v)
}

// NewFromValues builds a Config from explicit values layered over the defaults.
// Keys use the dotted form, e.g. "api.baseurl".
func NewFromValues(values map[string]any) Config {
	v := viper.New()
	setDefaults(v)
	for key, value := range values {
		v.Set(key, value)
	}
	return newMainConfig(v)
}

func newMainConfig(v *viper.Viper) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{v: v},
		API:      API{v: v},
		Storage:  Storage{v: v},
		Security: Security{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, "8090")
	v.SetDefault(keyAppName, "Account Client")
	v.SetDefault(keyDataFolder, "./data")
	v.SetDefault(keyEnv, "DEV")
	v.SetDefault(keyBaseURL, "http://localhost:8090")
	v.SetDefault(keyLogLevel, "info")

	v.SetDefault(keyAPIBaseURL, "http://localhost:8000/api/v1")
	v.SetDefault(keyAPITimeout, "15s")

	v.SetDefault(keyStorageKind, StorageKindFile)
	v.SetDefault(keyStorageKey, "")

	v.SetDefault(keyCookieSecret, "")
	v.SetDefault(keySecureCookies, false)
}
