package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyAPIBaseURL = "api.baseurl"
	keyAPITimeout = "api.timeout"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetAPIBaseURL returns the root of the remote auth API, e.g. "https://auth.example.com/api/v1"
func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.v.GetString(keyAPIBaseURL), "/")
}

func (a API) GetRequestTimeout() time.Duration {
	d := a.v.GetDuration(keyAPITimeout)
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}
