package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		render(w, tmpl, http.StatusOK, s.pageData(w, r, "Forgot password"))
	}
}

// ForgotPasswordPostHandler requests a reset token. There is no mail delivery,
// so the token is shown on the page with a link to the reset form.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.PostFormValue("email"))
		data := s.pageData(w, r, "Forgot password")
		data.Email = email

		resetToken, err := s.session.RequestPasswordReset(r.Context(), email)
		if err != nil {
			s.renderError(w, r, tmpl, data, err)
			return
		}

		data.Issued = true
		data.Token = resetToken
		render(w, tmpl, http.StatusOK, data)
	}
}

// ResetPasswordGetHandler renders the reset form, prefilled from ?token=
func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("reset_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(w, r, "Reset password")
		data.Token = r.URL.Query().Get("token")
		render(w, tmpl, http.StatusOK, data)
	}
}

// ResetPasswordPostHandler sets the new password. Mismatched confirmation
// never reaches the server.
func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("reset_password.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		resetToken := strings.TrimSpace(r.PostFormValue("token"))
		password := r.PostFormValue("password")
		confirm := r.PostFormValue("confirm")

		data := s.pageData(w, r, "Reset password")
		data.Token = resetToken

		if err := sessions.ValidatePasswordReset(resetToken, password, confirm); err != nil {
			s.renderError(w, r, tmpl, data, err)
			return
		}
		if err := s.session.ConfirmPasswordReset(r.Context(), resetToken, password); err != nil {
			s.renderError(w, r, tmpl, data, err)
			return
		}

		s.addNotice(w, r, "Password changed. Please sign in with your new password.")
		redirectSuccess(w, r, RouteLogin)
	}
}
