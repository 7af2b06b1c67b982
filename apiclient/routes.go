package apiclient

// Remote API paths, relative to the configured base URL (default /api/v1)
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathRefresh        = "/auth/refresh"
	PathLogout         = "/auth/logout"
	PathMe             = "/auth/me"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
)

const headerRequestID = "X-Request-ID"
