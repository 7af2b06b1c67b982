package sessions

// Fallback messages shown when the server gives no detail.
const (
	MsgLoginFailed         = "Login failed"
	MsgRegistrationFailed  = "Registration failed"
	MsgResetRequestFailed  = "Could not request a password reset"
	MsgResetConfirmFailed  = "Could not change the password"
	MsgDeleteAccountFailed = "Could not delete the account"
	MsgSessionExpired      = "Your session has expired, please sign in again"
)
