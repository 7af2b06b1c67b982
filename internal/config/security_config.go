package config

import "github.com/spf13/viper"

const (
	keyCookieSecret  = "cookie.secret"
	keySecureCookies = "cookie.secure"
)

type SecurityConfig interface {
	GetCookieSecret() string
	GetSecureCookies() bool
}

type Security struct {
	v *viper.Viper
}

var _ SecurityConfig = Security{}

// GetCookieSecret signs the UI notice cookie. A random secret is generated at startup when empty.
func (s Security) GetCookieSecret() string {
	return s.v.GetString(keyCookieSecret)
}

func (s Security) GetSecureCookies() bool {
	return s.v.GetBool(keySecureCookies)
}
