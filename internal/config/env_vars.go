package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "AUTHCLIENT"

const (
	keyPort       = "port"
	keyAppName    = "app.name"
	keyDataFolder = "data.folder"
	keyEnv        = "env"
	keyBaseURL    = "base.url"
	keyLogLevel   = "log.level"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(keyPort)
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(keyAppName)
}

func (e EnvVars) GetDataFolder() string {
	return e.v.GetString(keyDataFolder)
}

func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(e.v.GetString(keyEnv))
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the URL the UI is served from (e.g., "http://localhost:8090")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.v.GetString(keyBaseURL), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(keyLogLevel)
}

// loadDotEnv copies KEY=VALUE lines from path into the environment without
// overriding variables that are already set.
func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
